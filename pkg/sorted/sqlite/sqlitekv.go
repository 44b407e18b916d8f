/*
Copyright 2026 The Ordis Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sqlite provides an implementation of sorted.KeyValue using
// an SQLite database file, through the CGo-free modernc.org/sqlite
// driver.
package sqlite

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go4.org/jsonconfig"
	"ordis.org/pkg/sorted"

	_ "modernc.org/sqlite"
)

var _ sorted.Wiper = (*keyValue)(nil)

func init() {
	sorted.RegisterKeyValue("sqlite", newKeyValueFromJSONConfig)
}

// NewStorage is a convenience that calls newKeyValueFromJSONConfig
// with file as the sqlite storage file.
func NewStorage(file string) (sorted.KeyValue, error) {
	return newKeyValueFromJSONConfig(jsonconfig.Obj{"file": file})
}

func newKeyValueFromJSONConfig(cfg jsonconfig.Obj) (sorted.KeyValue, error) {
	file := cfg.RequiredString("file")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, err
	}
	// The driver is happiest with a single connection; SQLite does its
	// own locking.
	db.SetMaxOpenConns(1)
	if err := initDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize sqlite DB at %s: %v", file, err)
	}
	kv := &keyValue{
		file: file,
		db:   db,
	}
	version, err := kv.schemaVersion()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error getting schema version: %v", err)
	}
	if version != requiredSchemaVersion {
		db.Close()
		return nil, fmt.Errorf("database schema version is %d; expect %d (need to re-init/upgrade database?)",
			version, requiredSchemaVersion)
	}
	return kv, nil
}

type keyValue struct {
	file string
	db   *sql.DB

	// mu serializes writes; SQLite's driver likes to return "database
	// is locked" otherwise.
	mu sync.Mutex
}

func (kv *keyValue) schemaVersion() (version int, err error) {
	err = kv.db.QueryRow("SELECT value FROM meta WHERE metakey='version'").Scan(&version)
	return
}

func (kv *keyValue) Get(key []byte) ([]byte, error) {
	var v []byte
	err := kv.db.QueryRow("SELECT v FROM rows WHERE k=?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, sorted.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (kv *keyValue) Set(key, value []byte) error {
	if err := sorted.CheckSizes(key, value); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, err := kv.db.Exec("REPLACE INTO rows (k, v) VALUES (?, ?)", key, value)
	return err
}

func (kv *keyValue) Delete(key []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, err := kv.db.Exec("DELETE FROM rows WHERE k=?", key)
	return err
}

func (kv *keyValue) CompareAndSwap(key, old, new []byte) error {
	if err := sorted.CheckSizes(key, new); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	tx, err := kv.db.Begin()
	if err != nil {
		return err
	}
	var cur []byte
	err = tx.QueryRow("SELECT v FROM rows WHERE k=?", key).Scan(&cur)
	present := true
	if err == sql.ErrNoRows {
		present, cur = false, nil
		err = nil
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	if present != (old != nil) || !bytes.Equal(cur, old) {
		tx.Rollback()
		return sorted.ErrCASMismatch
	}
	if new == nil {
		_, err = tx.Exec("DELETE FROM rows WHERE k=?", key)
	} else {
		_, err = tx.Exec("REPLACE INTO rows (k, v) VALUES (?, ?)", key, new)
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (kv *keyValue) BeginBatch() sorted.BatchMutation {
	return sorted.NewBatchMutation()
}

type batcher interface {
	Mutations() []sorted.Mutation
}

func (kv *keyValue) CommitBatch(bm sorted.BatchMutation) error {
	b, ok := bm.(batcher)
	if !ok {
		return errors.New("invalid batch type")
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	tx, err := kv.db.Begin()
	if err != nil {
		return err
	}
	for _, m := range b.Mutations() {
		if m.IsDelete() {
			_, err = tx.Exec("DELETE FROM rows WHERE k=?", m.Key())
		} else {
			if err = sorted.CheckSizes(m.Key(), m.Value()); err == nil {
				_, err = tx.Exec("REPLACE INTO rows (k, v) VALUES (?, ?)", m.Key(), m.Value())
			}
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (kv *keyValue) Find(start, end []byte) sorted.Iterator {
	var (
		rows *sql.Rows
		err  error
	)
	if end == nil {
		rows, err = kv.db.Query("SELECT k, v FROM rows WHERE k>=? ORDER BY k", emptyIfNil(start))
	} else {
		rows, err = kv.db.Query("SELECT k, v FROM rows WHERE k>=? AND k<? ORDER BY k", emptyIfNil(start), end)
	}
	return &iter{rows: rows, err: err}
}

// emptyIfNil keeps a nil start from being bound as SQL NULL, which
// compares as unknown rather than as the least key.
func emptyIfNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func (kv *keyValue) Wipe() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, err := kv.db.Exec("DELETE FROM rows")
	return err
}

func (kv *keyValue) Close() error {
	return kv.db.Close()
}

type iter struct {
	rows *sql.Rows
	err  error

	key, val []byte
	closed   bool
}

func (it *iter) Next() bool {
	if it.err != nil || it.closed || it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	it.key, it.val = nil, nil
	if err := it.rows.Scan(&it.key, &it.val); err != nil {
		it.err = err
		return false
	}
	return true
}

func (it *iter) Key() []byte   { return it.key }
func (it *iter) Value() []byte { return it.val }

func (it *iter) Close() error {
	if it.closed {
		return it.err
	}
	it.closed = true
	if it.rows != nil {
		if err := it.rows.Close(); err != nil && it.err == nil {
			it.err = err
		}
	}
	return it.err
}
