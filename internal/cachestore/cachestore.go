// Package cachestore implements spec.md §4.B's Metadata Cache Store: a
// bbolt-backed database holding a downloads table (keyed by Canonical URL)
// and a persistent frontier queue, used to survive process restarts without
// re-downloading unchanged pages. The bbolt wiring mirrors the teacher
// pack's bucket-per-concern, CreateBucketIfNotExists-on-open convention.
package cachestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketDownloads = "downloads"
	bucketURLQueue  = "url_queue"
)

// CacheEntry is spec.md §3's Cache Entry tuple, keyed externally by CU.
type CacheEntry struct {
	ContentType  string    `json:"contentType"`
	URLFilePath  string    `json:"urlFilePath"`
	URLFileSize  int64     `json:"urlFileSize"`
	TextFilePath string    `json:"textFilePath"`
	TextFileSize int64     `json:"textFileSize"`
	ContentHash  string    `json:"contentHash"`
	DownloadTime time.Time `json:"downloadTime"`
}

// FrontierEntry is spec.md §3's Frontier Entry triple.
type FrontierEntry struct {
	RawURL         string `json:"rawUrl"`
	DepthActual    int    `json:"depthActual"`
	DepthEffective int    `json:"depthEffective"`
}

// Store owns the on-disk metadata database and persistent frontier table.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open creates the database file (and parent directories) if absent and
// ensures both buckets exist, per spec.md §4.B's init() operation.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketDownloads)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketURLQueue))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cache entry for cu when its referenced artifact file
// still exists on disk with the recorded size. A size mismatch or missing
// file evicts the stale row and reports not-found rather than an error.
func (s *Store) Lookup(cu string) (CacheEntry, bool, error) {
	var entry CacheEntry
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketDownloads)).Get([]byte(cu))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return CacheEntry{}, false, err
	}
	if !found {
		return CacheEntry{}, false, nil
	}

	info, statErr := os.Stat(entry.URLFilePath)
	if statErr != nil || info.Size() != entry.URLFileSize {
		_ = s.evict(cu)
		return CacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (s *Store) evict(cu string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketDownloads)).Delete([]byte(cu))
	})
}

// Upsert replaces the cache entry for cu in full.
func (s *Store) Upsert(cu string, entry CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketDownloads)).Put([]byte(cu), raw)
	})
}

// Enqueue inserts a frontier row for rawURL unless one already exists
// (insert-or-ignore, per spec.md §4.B).
func (s *Store) Enqueue(entry FrontierEntry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketURLQueue))
		if b.Get([]byte(entry.RawURL)) != nil {
			return nil
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.RawURL), raw)
	})
}

// DrainFrontier returns every persisted frontier entry without removing
// them; callers clear the table separately via ClearFrontier once the
// entries have been loaded into the in-memory queue.
func (s *Store) DrainFrontier() ([]FrontierEntry, error) {
	var entries []FrontierEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketURLQueue)).ForEach(func(_, v []byte) error {
			var e FrontierEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// ClearFrontier empties the persistent frontier table.
func (s *Store) ClearFrontier() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketURLQueue)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketURLQueue))
		return err
	})
}

// Finalise deletes the frontier row for rawURL once its work is complete.
func (s *Store) Finalise(rawURL string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketURLQueue)).Delete([]byte(rawURL))
	})
}

// ClearCache wipes the downloads table's contents, or the whole database
// file (and reopens it) when deleteDB is set.
func (s *Store) ClearCache(deleteDB bool) error {
	if deleteDB {
		if err := s.db.Close(); err != nil {
			return err
		}
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		reopened, err := Open(s.path)
		if err != nil {
			return err
		}
		s.db = reopened.db
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketDownloads)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketDownloads))
		return err
	})
}
