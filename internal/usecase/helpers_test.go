package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adapterrepo "lugares/internal/adapter/repository"
	"lugares/internal/domain/entity"
	"lugares/internal/domain/repository"
)

var errStoreDown = errors.New("rpc error: code = Unavailable desc = connection refused")

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) RatingUpdated(restaurantID string, result entity.RatingResult) {
	m.Called(restaurantID, result)
}

// recordingCache counts invalidations and can serve a fixed list.
type recordingCache struct {
	mu          sync.Mutex
	snapshots   []entity.RestaurantSnapshot
	stored      bool
	getErr      error
	invalidated int
	generation  int64
}

func (c *recordingCache) GetAll(context.Context) ([]entity.RestaurantSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.snapshots, c.stored, nil
}

func (c *recordingCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *recordingCache) SetAll(_ context.Context, generation int64, snapshots []entity.RestaurantSnapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false, nil
	}
	c.snapshots = snapshots
	c.stored = true
	return true, nil
}

func (c *recordingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = nil
	c.stored = false
	c.invalidated++
	c.generation++
	return nil
}

// countingStore records every call and can be switched to fail.
type countingStore struct {
	repository.DocumentStore
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *countingStore) hit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errStoreDown
	}
	return nil
}

func (s *countingStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.DocumentStore.Get(ctx, collection, id)
}

func (s *countingStore) Query(ctx context.Context, collection string, filters ...repository.Filter) ([]*repository.Document, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.DocumentStore.Query(ctx, collection, filters...)
}

func (s *countingStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}, merge bool) error {
	if err := s.hit(); err != nil {
		return err
	}
	return s.DocumentStore.Set(ctx, collection, id, fields, merge)
}

func (s *countingStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.hit(); err != nil {
		return err
	}
	return s.DocumentStore.Delete(ctx, collection, id)
}

func (s *countingStore) RunTransaction(ctx context.Context, fn repository.TxnFunc) error {
	if err := s.hit(); err != nil {
		return err
	}
	return s.DocumentStore.RunTransaction(ctx, fn)
}

// hookStore runs afterQuery once, right after the first Query on collection
// has read its documents.
type hookStore struct {
	repository.DocumentStore
	collection string
	afterQuery func()
	once       sync.Once
}

func (s *hookStore) Query(ctx context.Context, collection string, filters ...repository.Filter) ([]*repository.Document, error) {
	docs, err := s.DocumentStore.Query(ctx, collection, filters...)
	if collection == s.collection {
		s.once.Do(s.afterQuery)
	}
	return docs, err
}

func newMemoryStore() repository.DocumentStore {
	return adapterrepo.NewMemoryDocumentStore(5)
}

func seedRestaurant(t *testing.T, store repository.DocumentStore, id string, fields map[string]interface{}) {
	t.Helper()
	if fields == nil {
		fields = map[string]interface{}{}
	}
	require.NoError(t, store.Set(context.Background(), repository.RestaurantsCollection, id, fields, false))
}

func storedTriple(t *testing.T, store repository.DocumentStore, id string) (interface{}, interface{}, interface{}) {
	t.Helper()
	doc, err := store.Get(context.Background(), repository.RestaurantsCollection, id)
	require.NoError(t, err)
	return doc.Fields[repository.FieldRatingCount], doc.Fields[repository.FieldRatingTotal], doc.Fields[repository.FieldRating]
}

// interleavingStore holds the first `parties` transaction bodies at their
// first write until all of them have done their reads, so every one of them
// commits against the same snapshot and all but one must retry.
type interleavingStore struct {
	repository.DocumentStore
	mu      sync.Mutex
	count   int
	parties int
	barrier sync.WaitGroup
}

func newInterleavingStore(inner repository.DocumentStore, parties int) *interleavingStore {
	s := &interleavingStore{DocumentStore: inner, parties: parties}
	s.barrier.Add(parties)
	return s
}

func (s *interleavingStore) RunTransaction(ctx context.Context, fn repository.TxnFunc) error {
	return s.DocumentStore.RunTransaction(ctx, func(ctx context.Context, tx repository.Txn) error {
		s.mu.Lock()
		s.count++
		n := s.count
		s.mu.Unlock()

		if n <= s.parties {
			tx = &pausingTxn{Txn: tx, pause: s.arrive}
		}
		return fn(ctx, tx)
	})
}

func (s *interleavingStore) arrive() {
	s.barrier.Done()
	s.barrier.Wait()
}

func (s *interleavingStore) bodies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type pausingTxn struct {
	repository.Txn
	pause  func()
	paused bool
}

func (t *pausingTxn) Set(collection, id string, fields map[string]interface{}, merge bool) error {
	if !t.paused {
		t.paused = true
		t.pause()
	}
	return t.Txn.Set(collection, id, fields, merge)
}
