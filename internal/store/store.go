// Package store keeps document snapshots in a bbolt database.
//
// Each snapshot is stored under its document id in the "snapshots"
// bucket as zstd-compressed JSON of the form
//
//	{"doc": <ProseMirror JSON>, "meta": {"savedAt": "...", "version": 1}}
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketSnapshots = "snapshots"
	formatVersion   = 1

	// maxSnapshotSize bounds decompressed snapshots.
	maxSnapshotSize = 64 << 20
)

// Store errors.
var (
	// ErrNotFound is returned when no snapshot exists for an id.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupt is returned for a snapshot that cannot be decoded.
	ErrCorrupt = errors.New("corrupt snapshot")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Snapshot is a stored document.
type Snapshot struct {
	ID      string
	Doc     map[string]any
	SavedAt time.Time
	Version int
}

// Store is a snapshot database. It is safe for concurrent use.
type Store struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize snapshot store: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSnapshotSize))
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Save stores doc under id, replacing any previous snapshot.
func (s *Store) Save(id string, doc map[string]any, at time.Time) error {
	if s.db == nil {
		return ErrClosed
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", id, err)
	}
	payload, err := sjson.SetRawBytes([]byte(`{}`), "doc", raw)
	if err != nil {
		return err
	}
	if payload, err = sjson.SetBytes(payload, "meta.savedAt", at.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	if payload, err = sjson.SetBytes(payload, "meta.version", formatVersion); err != nil {
		return err
	}

	compressed := s.enc.EncodeAll(payload, nil)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Put([]byte(id), compressed)
	})
}

// Load returns the snapshot stored under id.
func (s *Store) Load(id string) (Snapshot, error) {
	if s.db == nil {
		return Snapshot{}, ErrClosed
	}
	var compressed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		// bbolt values are only valid inside the transaction.
		compressed = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	payload, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %q: %v", ErrCorrupt, id, err)
	}
	return decode(id, payload)
}

func decode(id string, payload []byte) (Snapshot, error) {
	if !gjson.ValidBytes(payload) {
		return Snapshot{}, fmt.Errorf("%w: %q: invalid JSON", ErrCorrupt, id)
	}
	fields := gjson.GetManyBytes(payload, "doc", "meta.savedAt", "meta.version")
	if !fields[0].IsObject() {
		return Snapshot{}, fmt.Errorf("%w: %q: missing doc", ErrCorrupt, id)
	}
	doc, ok := fields[0].Value().(map[string]any)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q: doc is not an object", ErrCorrupt, id)
	}
	snap := Snapshot{ID: id, Doc: doc, Version: int(fields[2].Int())}
	if fields[1].Exists() {
		at, err := time.Parse(time.RFC3339Nano, fields[1].String())
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %q: %v", ErrCorrupt, id, err)
		}
		snap.SavedAt = at
	}
	return snap, nil
}

// List returns the stored ids in key order.
func (s *Store) List() ([]string, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Delete removes the snapshot stored under id. Deleting a missing id is
// not an error.
func (s *Store) Delete(id string) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Delete([]byte(id))
	})
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	s.enc.Close()
	s.dec.Close()
	err := s.db.Close()
	s.db = nil
	return err
}
