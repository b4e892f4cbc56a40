// Package history keeps a local record of past yt-fetch runs in a bbolt database.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var Buckets = struct {
	Metadata []byte
	Runs     []byte
}{
	Metadata: []byte("__metadata__"),
	Runs:     []byte("runs"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported history database version")

// Entry describes one finished run.
type Entry struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	DryRun           bool      `json:"dry_run"`
	Targets          []string  `json:"targets"`
	Total            int       `json:"total"`
	Completed        int       `json:"completed"`
	ExitCode         int       `json:"exit_code"`
	Forbidden        bool      `json:"forbidden,omitempty"`
	TranscodeTrouble bool      `json:"transcode_trouble,omitempty"`
}

// key orders entries chronologically under bbolt's byte-wise key ordering.
func (e *Entry) key() []byte {
	return []byte(e.StartedAt.UTC().Format("20060102T150405.000000000Z") + "/" + e.ID)
}

type Store interface {
	Record(entry *Entry) error
	// List returns up to limit of the most recent entries, oldest first. A limit < 1 returns all entries.
	List(limit int) ([]Entry, error)
	Close() error
}

// DefaultPath is history.db under the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "yt-fetch", "history.db"), nil
}

type database struct {
	*bbolt.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (_ Store, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Runs); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = currentVersion
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else {
			return metadata.Put(MetadataKeys.Version, versionBytes)
		}
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &database{db}, nil
}

func (d *database) Record(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(Buckets.Runs).Put(entry.key(), data)
	})
}

func (d *database) List(limit int) (entries []Entry, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(Buckets.Runs).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("history entry %s: %w", k, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Cursor walked newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// NilStore discards everything, for when history is disabled or unavailable.
type NilStore struct{}

func (NilStore) Record(*Entry) error { return nil }

func (NilStore) List(int) ([]Entry, error) { return nil, nil }

func (NilStore) Close() error { return nil }
