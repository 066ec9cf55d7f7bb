package repository

import (
	"context"
	"errors"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrReadAfterWrite   = errors.New("transaction reads must precede writes")
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrTooManyAttempts is returned when a transaction kept conflicting past the retry bound.
	ErrTooManyAttempts = errors.New("transaction retry limit reached")
)

// Document is a schemaless stored record.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

func (d *Document) Field(name string) (interface{}, bool) {
	if d == nil || d.Fields == nil {
		return nil, false
	}
	v, ok := d.Fields[name]
	return v, ok
}

// Ref points at another document, the portable form of a Firestore DocumentReference.
type Ref struct {
	Collection string
	ID         string
}

type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

type serverTimestamp struct{}

// ServerTimestamp asks the store to fill in its own commit time.
var ServerTimestamp = serverTimestamp{}

func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

// Txn is the transaction-scoped view of the store. All Get calls must happen
// before the first write.
type Txn interface {
	Get(collection, id string) (*Document, error)
	Set(collection, id string, fields map[string]interface{}, merge bool) error
	Update(collection, id string, fields map[string]interface{}) error
	Delete(collection, id string) error
}

// TxnFunc may run more than once when the store retries after a conflict,
// so it must not have side effects outside the Txn.
type TxnFunc func(ctx context.Context, tx Txn) error

type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error
	Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	Delete(ctx context.Context, collection, id string) error
	RunTransaction(ctx context.Context, fn TxnFunc) error
}
