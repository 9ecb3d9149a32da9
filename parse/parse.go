package parse

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"tidbyt.dev/gtfsgraph/downloader"
)

// The tables needed to build a station graph.
var RequiredFiles = []string{
	"routes.txt",
	"trips.txt",
	"stop_times.txt",
	"stops.txt",
}

func init() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})
}

// The opened tables of a GTFS feed. Close must be called when done,
// also if parsing fails.
type Feed struct {
	file map[string]io.ReadCloser
}

func newFeed() *Feed {
	file := map[string]io.ReadCloser{}
	for _, name := range RequiredFiles {
		file[name] = nil
	}
	return &Feed{file: file}
}

// Returns the named table, or nil if it's not part of the feed.
func (f *Feed) File(name string) io.Reader {
	rc := f.file[name]
	if rc == nil {
		return nil
	}
	return rc
}

func (f *Feed) Close() error {
	var firstErr error
	for name, rc := range f.file {
		if rc == nil {
			continue
		}
		if err := rc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", name, err)
		}
		f.file[name] = nil
	}
	return firstErr
}

func (f *Feed) checkRequired() error {
	for _, required := range RequiredFiles {
		if f.file[required] == nil {
			return fmt.Errorf("missing %s", required)
		}
	}
	return nil
}

// Opens the tables of a feed extracted into a directory.
func OpenDir(dir string) (*Feed, error) {
	feed := newFeed()
	for _, name := range RequiredFiles {
		fh, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			feed.Close()
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("missing %s", name)
			}
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		feed.file[name] = fh
	}
	return feed, nil
}

// Opens the tables of a zipped feed.
func OpenZip(buf []byte) (*Feed, error) {
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	feed := newFeed()
	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if existing, found := feed.file[fName]; !found || existing != nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			feed.Close()
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		feed.file[fName] = rc
	}

	if err := feed.checkRequired(); err != nil {
		feed.Close()
		return nil, err
	}

	return feed, nil
}

type SourceOptions struct {
	Downloader downloader.Downloader
	Headers    map[string]string
	Get        downloader.GetOptions
}

// Opens a feed from a directory, a zip archive on disk or the URL of
// a zip archive.
func OpenFeed(ctx context.Context, source string, opts SourceOptions) (*Feed, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		d := opts.Downloader
		if d == nil {
			d = downloader.NewMemoryDownloader()
		}
		buf, err := d.Get(ctx, source, opts.Headers, opts.Get)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", source, err)
		}
		return OpenZip(buf)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("opening feed: %w", err)
	}

	if info.IsDir() {
		return OpenDir(source)
	}

	buf, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return OpenZip(buf)
}
