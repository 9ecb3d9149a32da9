package downloader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tidbyt.dev/gtfsgraph/logging"
)

// Caches downloaded feed archives in a JSON file, so that repeated
// runs against the same feed URL don't refetch it.
//
// Feed archives are large, so expired records are pruned whenever the
// file is rewritten.
type Filesystem struct {
	Path    string
	Records map[string]fsRecord
	Logger  *slog.Logger

	TimeNow func() time.Time

	mutex sync.Mutex
}

type fsRecord struct {
	URL         string    `json:"url"`
	Size        int       `json:"size"`
	Body        string    `json:"body"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

func NewFilesystem(path string, logger *slog.Logger) (*Filesystem, error) {
	fs := &Filesystem{
		Path:    path,
		Records: map[string]fsRecord{},
		Logger:  logger,
		TimeNow: time.Now,
	}

	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return fs, nil
}

func (f *Filesystem) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	key := cacheKey(url, headers)

	if options.Cache {
		body, err := f.lookup(key, options.CacheTTL)
		if err != nil {
			return nil, err
		}
		if body != nil {
			return body, nil
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}

	if options.Cache {
		now := f.TimeNow().UTC()
		f.Records[key] = fsRecord{
			URL:         url,
			Size:        len(body),
			Body:        base64.StdEncoding.EncodeToString(body),
			RetrievedAt: now,
		}
		if err := f.save(options.CacheTTL); err != nil {
			return nil, fmt.Errorf("saving: %w", err)
		}
	}

	return body, nil
}

// Returns the cached body for key, or nil if there is no record
// younger than ttl.
func (f *Filesystem) lookup(key string, ttl time.Duration) ([]byte, error) {
	record, found := f.Records[key]
	if !found {
		return nil, nil
	}

	if !record.RetrievedAt.Add(ttl).After(f.TimeNow()) {
		logging.LogOperation(
			f.Logger,
			"feed cache expired",
			slog.String("url", record.URL),
			slog.Time("retrieved_at", record.RetrievedAt),
		)
		return nil, nil
	}

	body, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding cached %s: %w", record.URL, err)
	}

	logging.LogOperation(
		f.Logger,
		"feed cache hit",
		slog.String("url", record.URL),
		slog.Int("size", record.Size),
	)
	return body, nil
}

func (f *Filesystem) load() error {
	buf, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	if err := json.Unmarshal(buf, &f.Records); err != nil {
		return fmt.Errorf("unmarshalling: %w", err)
	}

	return nil
}

// Writes the records younger than ttl. The file is replaced
// atomically, so an interrupted run leaves the previous cache intact.
func (f *Filesystem) save(ttl time.Duration) error {
	now := f.TimeNow()
	for key, record := range f.Records {
		if !record.RetrievedAt.Add(ttl).After(now) {
			delete(f.Records, key)
		}
	}

	buf, err := json.Marshal(f.Records)
	if err != nil {
		return fmt.Errorf("marshalling: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}

	return nil
}
