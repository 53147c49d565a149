// Package memory implements store.Store in process memory.
// It enforces the same uniqueness rules as the Postgres schema and is meant
// for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

// Row is a stored registration with its attachment columns.
type Row struct {
	ID          int64
	Reg         store.Registration
	Attachments map[string]string
}

// StoredObject is a stored file.
type StoredObject struct {
	store.Object
	CacheControl string
}

// Store is an in-memory store.Store. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*Row
	objects map[string]map[string]StoredObject // bucket -> path -> object
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		rows:    make(map[int64]*Row),
		objects: make(map[string]map[string]StoredObject),
	}
}

// Insert implements store.RecordStore.
func (s *Store) Insert(ctx context.Context, reg store.Registration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &store.Error{Op: "insert", Code: store.CodeUnavailable, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.Reg.Email == reg.Email {
			return 0, uniqueViolation(store.UniqueEmail)
		}
		if row.Reg.License == reg.License {
			return 0, uniqueViolation(store.UniqueLicense)
		}
	}

	s.nextID++
	s.rows[s.nextID] = &Row{
		ID:          s.nextID,
		Reg:         reg,
		Attachments: make(map[string]string),
	}
	return s.nextID, nil
}

// Update implements store.RecordStore.
func (s *Store) Update(ctx context.Context, id int64, paths map[string]string) error {
	if err := ctx.Err(); err != nil {
		return &store.Error{Op: "update", Code: store.CodeUnavailable, Err: err}
	}
	for col := range paths {
		if !store.IsAttachmentColumn(col) {
			return &store.Error{
				Op:      "update",
				Code:    store.CodeInvalidInput,
				Message: fmt.Sprintf("column %q is not an attachment column", col),
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return &store.Error{Op: "update", Code: store.CodeNotFound, Message: fmt.Sprintf("registration %d not found", id)}
	}
	for col, path := range paths {
		row.Attachments[col] = path
	}
	return nil
}

// Delete implements store.RecordStore.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return &store.Error{Op: "delete", Code: store.CodeUnavailable, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return &store.Error{Op: "delete", Code: store.CodeNotFound, Message: fmt.Sprintf("registration %d not found", id)}
	}
	delete(s.rows, id)
	return nil
}

// Upload implements store.ObjectStore.
func (s *Store) Upload(ctx context.Context, bucket, path string, obj store.Object, opts store.UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &store.Error{Op: "upload", Code: store.CodeUnavailable, Err: err}
	}
	if path == "" {
		return "", &store.Error{Op: "upload", Code: store.CodeInvalidInput, Message: "empty object path"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.objects[bucket]
	if !ok {
		b = make(map[string]StoredObject)
		s.objects[bucket] = b
	}
	if _, exists := b[path]; exists && opts.NoOverwrite {
		return "", &store.Error{Op: "upload", Code: store.CodeObjectExists, Message: "The resource already exists"}
	}
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	b[path] = StoredObject{
		Object:       store.Object{Data: data, ContentType: obj.ContentType},
		CacheControl: opts.CacheControl,
	}
	return path, nil
}

// Remove implements store.ObjectStore.
func (s *Store) Remove(ctx context.Context, bucket string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return &store.Error{Op: "remove", Code: store.CodeUnavailable, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.objects[bucket]
	for _, p := range paths {
		delete(b, p)
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements store.Store.
func (s *Store) Close() {}

// Row returns a copy of the row with the given id.
func (s *Store) Row(id int64) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return Row{}, false
	}
	cp := *row
	cp.Attachments = make(map[string]string, len(row.Attachments))
	for k, v := range row.Attachments {
		cp.Attachments[k] = v
	}
	return cp, true
}

// RowCount returns the number of stored rows.
func (s *Store) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Object returns the object stored at bucket/path.
func (s *Store) Object(bucket, path string) (StoredObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[bucket][path]
	return obj, ok
}

// ObjectCount returns the number of objects in bucket.
func (s *Store) ObjectCount(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects[bucket])
}

func uniqueViolation(column string) *store.Error {
	return &store.Error{
		Op:      "insert",
		Code:    store.CodeUniqueViolation,
		Column:  column,
		Message: fmt.Sprintf("duplicate key value violates unique constraint \"solicitacoes_cadastro_%s_key\"", column),
	}
}
