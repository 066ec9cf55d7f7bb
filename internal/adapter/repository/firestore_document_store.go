package repository

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lugares/internal/domain/repository"
)

type firestoreDocumentStore struct {
	client      *firestore.Client
	maxAttempts int
}

func NewFirestoreDocumentStore(client *firestore.Client, maxAttempts int) repository.DocumentStore {
	if maxAttempts < 1 {
		maxAttempts = firestore.DefaultTransactionMaxAttempts
	}
	return &firestoreDocumentStore{
		client:      client,
		maxAttempts: maxAttempts,
	}
}

func (s *firestoreDocumentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err, "get "+collection+"/"+id)
	}
	return fromSnapshot(snap), nil
}

func (s *firestoreDocumentStore) Query(ctx context.Context, collection string, filters ...repository.Filter) ([]*repository.Document, error) {
	query := s.client.Collection(collection).Query
	for _, f := range filters {
		query = query.Where(f.Field, "==", s.toFirestoreValue(f.Value))
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []*repository.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapFirestoreError(err, "query "+collection)
		}
		docs = append(docs, fromSnapshot(snap))
	}
	return docs, nil
}

func (s *firestoreDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}

	_, err := s.client.Collection(collection).Doc(id).Set(ctx, s.toFirestoreMap(fields), opts...)
	if err != nil {
		return mapFirestoreError(err, "set "+collection+"/"+id)
	}
	return nil
}

func (s *firestoreDocumentStore) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, s.toFirestoreMap(fields))
	if err != nil {
		return "", mapFirestoreError(err, "add "+collection)
	}
	return ref.ID, nil
}

func (s *firestoreDocumentStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	if err != nil {
		return mapFirestoreError(err, "delete "+collection+"/"+id)
	}
	return nil
}

func (s *firestoreDocumentStore) RunTransaction(ctx context.Context, fn repository.TxnFunc) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTxn{store: s, tx: tx})
	}, firestore.MaxAttempts(s.maxAttempts))
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Aborted:
		return fmt.Errorf("%w: %v", repository.ErrTooManyAttempts, err)
	case codes.NotFound:
		// An Update whose target vanished before commit.
		return repository.ErrDocumentNotFound
	}
	return err
}

type firestoreTxn struct {
	store *firestoreDocumentStore
	tx    *firestore.Transaction
}

func (t *firestoreTxn) Get(collection, id string) (*repository.Document, error) {
	snap, err := t.tx.Get(t.store.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, mapFirestoreError(err, "transaction get "+collection+"/"+id)
	}
	return fromSnapshot(snap), nil
}

func (t *firestoreTxn) Set(collection, id string, fields map[string]interface{}, merge bool) error {
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}
	return t.tx.Set(t.store.client.Collection(collection).Doc(id), t.store.toFirestoreMap(fields), opts...)
}

func (t *firestoreTxn) Update(collection, id string, fields map[string]interface{}) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: t.store.toFirestoreValue(fields[k])})
	}
	return t.tx.Update(t.store.client.Collection(collection).Doc(id), updates)
}

func (t *firestoreTxn) Delete(collection, id string) error {
	return t.tx.Delete(t.store.client.Collection(collection).Doc(id))
}

func mapFirestoreError(err error, op string) error {
	if status.Code(err) == codes.NotFound {
		return repository.ErrDocumentNotFound
	}
	return fmt.Errorf("firestore %s: %w", op, err)
}

func fromSnapshot(snap *firestore.DocumentSnapshot) *repository.Document {
	data := snap.Data()
	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		fields[k] = fromFirestoreValue(v)
	}
	return &repository.Document{ID: snap.Ref.ID, Fields: fields}
}

func (s *firestoreDocumentStore) toFirestoreMap(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = s.toFirestoreValue(v)
	}
	return out
}

func (s *firestoreDocumentStore) toFirestoreValue(v interface{}) interface{} {
	switch t := v.(type) {
	case repository.Ref:
		return s.client.Collection(t.Collection).Doc(t.ID)
	case repository.GeoPoint:
		return &latlng.LatLng{Latitude: t.Latitude, Longitude: t.Longitude}
	case map[string]interface{}:
		return s.toFirestoreMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = s.toFirestoreValue(item)
		}
		return out
	}
	if repository.IsServerTimestamp(v) {
		return firestore.ServerTimestamp
	}
	return v
}

func fromFirestoreValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *firestore.DocumentRef:
		if t == nil {
			return nil
		}
		return repository.Ref{Collection: relativeCollectionPath(t.Parent), ID: t.ID}
	case *latlng.LatLng:
		if t == nil {
			return nil
		}
		return repository.GeoPoint{Latitude: t.Latitude, Longitude: t.Longitude}
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = fromFirestoreValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = fromFirestoreValue(item)
		}
		return out
	}
	return v
}

// relativeCollectionPath turns a collection reference into the slash path
// used by Collection(), e.g. "Restaurante/abc/ratings".
func relativeCollectionPath(c *firestore.CollectionRef) string {
	if c == nil {
		return ""
	}
	if c.Parent == nil {
		return c.ID
	}
	return relativeCollectionPath(c.Parent.Parent) + "/" + c.Parent.ID + "/" + c.ID
}
