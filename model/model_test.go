package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in    string
		color Color
		err   bool
	}{
		{"", Color{}, false},
		{"FF0000", Color{R: 255}, false},
		{"00ff7f", Color{G: 255, B: 127}, false},
		{"123456", Color{R: 0x12, G: 0x34, B: 0x56}, false},
		{"FFF", Color{}, true},
		{"FF00000", Color{}, true},
		{"GG0000", Color{}, true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			color, err := ParseColor(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.color, color)
		})
	}
}
