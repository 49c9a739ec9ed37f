package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rohankatakam/graphbridge/internal/table"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	tablesBucket = "tables"
	blobsBucket  = "blobs"

	// BoltFileName is the database file created under an index's base dir
	BoltFileName = "output.db"
)

// BoltStore keeps each table as one JSON document in a bbolt bucket.
// This is the default file-backed store: one file per index root.
type BoltStore struct {
	db     *bolt.DB
	logger *logrus.Logger
}

// NewBoltStore opens (or creates) <baseDir>/output.db
func NewBoltStore(baseDir string, logger *logrus.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(baseDir, BoltFileName)
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{tablesBucket, blobsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}

	return &BoltStore{db: db, logger: logger}, nil
}

// Exists implements TableStore
func (s *BoltStore) Exists(ctx context.Context, name string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(tablesBucket)).Get([]byte(name)) != nil
		return nil
	})
	return found, err
}

// Read implements TableStore
func (s *BoltStore) Read(ctx context.Context, name string) (*table.Table, error) {
	var t table.Table
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(tablesBucket)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("table %s: %w", name, ErrNotFound)
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Write implements TableStore
func (s *BoltStore) Write(ctx context.Context, t *table.Table, name string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", name, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(tablesBucket)).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("write table %s: %w", name, err)
	}

	s.logger.WithFields(logrus.Fields{
		"table": name,
		"rows":  t.Len(),
		"bytes": len(data),
	}).Debug("table written to bolt store")
	return nil
}

// WriteBlob implements TableStore
func (s *BoltStore) WriteBlob(ctx context.Context, name string, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(blobsBucket)).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	return nil
}

// ReadBlob returns a previously written artifact
func (s *BoltStore) ReadBlob(ctx context.Context, name string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(blobsBucket)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("blob %s: %w", name, ErrNotFound)
		}
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

// Close implements TableStore
func (s *BoltStore) Close() error {
	return s.db.Close()
}
