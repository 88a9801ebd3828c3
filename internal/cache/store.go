// Package cache persists the three board records of a workspace on the local machine.
//
// The cache holds whole records, each overwritten on every save:
//
//	<workspace>/status    status matrix
//	<workspace>/comments  comment matrix
//	<workspace>/meta      platform meta
//
// Records are stored as JSON and returned raw by Load. Decoding, including upgrading data written
// by older versions, is the job of the schema package.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dyluth/tablero/pkg/board"
)

// Record names one of the three persisted records.
type Record string

const (
	RecordStatus   Record = "status"
	RecordComments Record = "comments"
	RecordMeta     Record = "meta"
)

// Records lists every record of a workspace.
var Records = []Record{RecordStatus, RecordComments, RecordMeta}

// Backend is a durable byte-oriented key/value store.
// Get reports found=false for a key that was never written or has been deleted.
type Backend interface {
	Get(key string) (value []byte, found bool, err error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Store reads and writes the records of one workspace on a Backend.
// Store is safe for concurrent use if the Backend is.
type Store struct {
	backend   Backend
	workspace string
}

// NewStore creates a store for workspace on backend.
func NewStore(backend Backend, workspace string) *Store {
	return &Store{backend: backend, workspace: workspace}
}

// Key returns the backend key of a record.
func (s *Store) Key(r Record) string {
	return s.workspace + "/" + string(r)
}

// Load returns the raw bytes of a record, or nil if it was never saved.
func (s *Store) Load(r Record) ([]byte, error) {
	data, found, err := s.backend.Get(s.Key(r))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s record: %w", r, err)
	}
	if !found {
		return nil, nil
	}
	return data, nil
}

// SaveStatus overwrites the status record.
func (s *Store) SaveStatus(m board.StatusMatrix) error {
	return s.save(RecordStatus, m)
}

// SaveComments overwrites the comments record.
func (s *Store) SaveComments(m board.CommentMatrix) error {
	return s.save(RecordComments, m)
}

// SaveMeta overwrites the meta record.
func (s *Store) SaveMeta(m board.MetaMatrix) error {
	return s.save(RecordMeta, m)
}

func (s *Store) save(r Record, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", r, err)
	}
	if err := s.backend.Put(s.Key(r), data); err != nil {
		return fmt.Errorf("failed to save %s record: %w", r, err)
	}
	return nil
}

// Clear deletes all three records. Every record is attempted; the first failure is returned.
func (s *Store) Clear() error {
	var first error
	for _, r := range Records {
		if err := s.backend.Delete(s.Key(r)); err != nil && first == nil {
			first = fmt.Errorf("failed to delete %s record: %w", r, err)
		}
	}
	return first
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Backend kinds accepted by Open.
const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Open opens the backend named by kind rooted at path.
func Open(kind, path string, logger *slog.Logger) (Backend, error) {
	switch kind {
	case BackendBadger, "":
		cfg := DefaultBadgerConfig()
		cfg.Path = path
		cfg.Logger = logger
		b, err := OpenBadger(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendFile:
		f, err := OpenFile(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", kind)
	}
}
