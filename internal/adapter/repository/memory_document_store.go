package repository

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lugares/internal/domain/repository"
)

var errWriteConflict = errors.New("write conflict")

// memoryDocumentStore keeps documents in process. Transactions are optimistic:
// every read records the document version, and commit rejects the whole write
// set if any of those versions moved, then the body is retried.
type memoryDocumentStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*memoryDoc
	maxAttempts int
	now         func() time.Time
}

// memoryDoc with nil fields is a tombstone; its version keeps counting so a
// delete-then-recreate still invalidates readers that saw it absent.
type memoryDoc struct {
	fields  map[string]interface{}
	version uint64
}

func NewMemoryDocumentStore(maxAttempts int) repository.DocumentStore {
	return newMemoryDocumentStore(maxAttempts)
}

func newMemoryDocumentStore(maxAttempts int) *memoryDocumentStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &memoryDocumentStore{
		collections: make(map[string]map[string]*memoryDoc),
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryDocumentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _ := s.lookup(collection, id)
	if doc == nil {
		return nil, repository.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *memoryDocumentStore) Query(ctx context.Context, collection string, filters ...repository.Filter) ([]*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id, d := range docs {
		if d.fields != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	result := make([]*repository.Document, 0, len(ids))
	for _, id := range ids {
		fields := docs[id].fields
		if !matches(fields, filters) {
			continue
		}
		result = append(result, &repository.Document{ID: id, Fields: copyMap(fields)})
	}
	return result, nil
}

func (s *memoryDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(memoryWrite{kind: writeSet, collection: collection, id: id, fields: fields, merge: merge})
	return nil
}

func (s *memoryDocumentStore) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.apply(memoryWrite{kind: writeSet, collection: collection, id: id, fields: fields})
	return id, nil
}

func (s *memoryDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(memoryWrite{kind: writeDelete, collection: collection, id: id})
	return nil
}

func (s *memoryDocumentStore) RunTransaction(ctx context.Context, fn repository.TxnFunc) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := &memoryTxn{store: s, reads: make(map[docPath]uint64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}

		err := s.commit(tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errWriteConflict) {
			return err
		}
	}
	return repository.ErrTooManyAttempts
}

func (s *memoryDocumentStore) commit(tx *memoryTxn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, seen := range tx.reads {
		if _, version := s.lookup(path.collection, path.id); version != seen {
			return errWriteConflict
		}
	}

	// Update requires the target to exist once earlier writes in the same
	// transaction are taken into account.
	exists := make(map[docPath]bool)
	for _, w := range tx.writes {
		path := docPath{collection: w.collection, id: w.id}
		switch w.kind {
		case writeSet:
			exists[path] = true
		case writeDelete:
			exists[path] = false
		case writeUpdate:
			present, tracked := exists[path]
			if !tracked {
				doc, _ := s.lookup(w.collection, w.id)
				present = doc != nil
			}
			if !present {
				return repository.ErrDocumentNotFound
			}
		}
	}

	for _, w := range tx.writes {
		s.apply(w)
	}
	return nil
}

// lookup must be called with s.mu held.
func (s *memoryDocumentStore) lookup(collection, id string) (*repository.Document, uint64) {
	docs := s.collections[collection]
	if docs == nil {
		return nil, 0
	}
	d := docs[id]
	if d == nil {
		return nil, 0
	}
	if d.fields == nil {
		return nil, d.version
	}
	return &repository.Document{ID: id, Fields: copyMap(d.fields)}, d.version
}

// apply must be called with s.mu held.
func (s *memoryDocumentStore) apply(w memoryWrite) {
	docs := s.collections[w.collection]
	if docs == nil {
		docs = make(map[string]*memoryDoc)
		s.collections[w.collection] = docs
	}
	d := docs[w.id]
	if d == nil {
		d = &memoryDoc{}
		docs[w.id] = d
	}

	now := s.now()
	switch w.kind {
	case writeDelete:
		if d.fields == nil {
			return
		}
		d.fields = nil
	case writeSet:
		incoming := normalizeMap(w.fields, now)
		if w.merge && d.fields != nil {
			d.fields = mergeMaps(d.fields, incoming)
		} else {
			d.fields = incoming
		}
	case writeUpdate:
		incoming := normalizeMap(w.fields, now)
		if d.fields == nil {
			d.fields = map[string]interface{}{}
		}
		for k, v := range incoming {
			d.fields[k] = v
		}
	}
	d.version++
}

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

type memoryWrite struct {
	kind       writeKind
	collection string
	id         string
	fields     map[string]interface{}
	merge      bool
}

type memoryTxn struct {
	store  *memoryDocumentStore
	reads  map[docPath]uint64
	writes []memoryWrite
}

func (t *memoryTxn) Get(collection, id string) (*repository.Document, error) {
	if len(t.writes) > 0 {
		return nil, repository.ErrReadAfterWrite
	}

	t.store.mu.Lock()
	doc, version := t.store.lookup(collection, id)
	t.store.mu.Unlock()

	t.reads[docPath{collection: collection, id: id}] = version
	if doc == nil {
		return nil, repository.ErrDocumentNotFound
	}
	return doc, nil
}

func (t *memoryTxn) Set(collection, id string, fields map[string]interface{}, merge bool) error {
	t.writes = append(t.writes, memoryWrite{kind: writeSet, collection: collection, id: id, fields: copyMap(fields), merge: merge})
	return nil
}

func (t *memoryTxn) Update(collection, id string, fields map[string]interface{}) error {
	t.writes = append(t.writes, memoryWrite{kind: writeUpdate, collection: collection, id: id, fields: copyMap(fields)})
	return nil
}

func (t *memoryTxn) Delete(collection, id string) error {
	t.writes = append(t.writes, memoryWrite{kind: writeDelete, collection: collection, id: id})
	return nil
}

type docPath struct {
	collection string
	id         string
}

func matches(fields map[string]interface{}, filters []repository.Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || !reflect.DeepEqual(v, normalizeValue(f.Value, time.Time{})) {
			return false
		}
	}
	return true
}

// normalizeMap stores values the way Firestore hands them back: integers as
// int64, floats as float64, string slices as []interface{}.
func normalizeMap(fields map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v, now)
	}
	return out
}

func normalizeValue(v interface{}, now time.Time) interface{} {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item, now)
		}
		return out
	case map[string]interface{}:
		return normalizeMap(t, now)
	case time.Time:
		return t.UTC()
	}
	if repository.IsServerTimestamp(v) {
		return now
	}
	return v
}

func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	out := copyMap(dst)
	for k, v := range src {
		existing, ok := out[k].(map[string]interface{})
		incoming, isMap := v.(map[string]interface{})
		if ok && isMap {
			out[k] = mergeMaps(existing, incoming)
			continue
		}
		out[k] = v
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
