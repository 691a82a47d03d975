// Package metastore binds logical table names to lake table paths in a bolt
// database, so downstream query tools can find the gold table by name.
package metastore

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var tablesBucket = []byte("tables")

// Store is a bolt-backed name -> path catalog.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the metastore at filename.
func Open(filename string) (s *Store, err error) {
	s = &Store{}
	s.db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening metastore %q", filename)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tablesBucket)
		return errors.Wrap(err, "creating tables bucket")
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return s, nil
}

// Close syncs and closes the underlying bolt db.
func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return s.db.Close()
}

// Register binds name to path. Registering an existing name with the same
// path is a no-op, so callers can register on every run; a different path is
// an error unless overwrite is set.
func (s *Store) Register(name, path string, overwrite bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(tablesBucket)
		if cur := b.Get([]byte(name)); cur != nil && string(cur) != path && !overwrite {
			return errors.Errorf("table %q already registered at %q", name, cur)
		}
		return errors.Wrapf(b.Put([]byte(name), []byte(path)), "registering %q", name)
	})
}

// Lookup returns the path bound to name.
func (s *Store) Lookup(name string) (path string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(tablesBucket).Get([]byte(name))
		if v == nil {
			return errors.Errorf("table %q not registered", name)
		}
		path = string(v)
		return nil
	})
	return path, err
}

// List returns every registered name -> path binding.
func (s *Store) List() (map[string]string, error) {
	out := map[string]string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tablesBucket).ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, err
}
