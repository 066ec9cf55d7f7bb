package repository

import (
	"context"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lugares/internal/domain/repository"
)

// newOfflineClient builds a client pointed at an emulator address. Nothing
// here issues an RPC, so no emulator needs to be running.
func newOfflineClient(t *testing.T) *firestore.Client {
	t.Helper()
	t.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:8686")
	client, err := firestore.NewClient(context.Background(), "lugares-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFirestoreValues_RoundTrip(t *testing.T) {
	client := newOfflineClient(t)
	store := NewFirestoreDocumentStore(client, 0).(*firestoreDocumentStore)
	assert.Equal(t, firestore.DefaultTransactionMaxAttempts, store.maxAttempts)

	in := map[string]interface{}{
		"Restaurante": repository.RestaurantRef("r1"),
		"pos":         repository.GeoPoint{Latitude: 4.6, Longitude: -74.07},
		"tags":        []interface{}{"a", repository.Ref{Collection: repository.RatingsCollection("r1"), ID: "u1"}},
		"valor":       int64(4),
	}

	out := store.toFirestoreMap(in)
	ref, ok := out["Restaurante"].(*firestore.DocumentRef)
	require.True(t, ok)
	assert.Equal(t, "r1", ref.ID)
	assert.Equal(t, &latlng.LatLng{Latitude: 4.6, Longitude: -74.07}, out["pos"])
	assert.Equal(t, firestore.ServerTimestamp, store.toFirestoreValue(repository.ServerTimestamp))

	back := make(map[string]interface{}, len(out))
	for k, v := range out {
		back[k] = fromFirestoreValue(v)
	}
	assert.Equal(t, in, back)
}

func TestRelativeCollectionPath(t *testing.T) {
	client := newOfflineClient(t)

	assert.Equal(t, "Restaurante", relativeCollectionPath(client.Collection("Restaurante")))
	assert.Equal(t, repository.RatingsCollection("r1"),
		relativeCollectionPath(client.Collection("Restaurante").Doc("r1").Collection("ratings")))
	assert.Equal(t, "", relativeCollectionPath(nil))
}

func TestMapFirestoreError(t *testing.T) {
	err := mapFirestoreError(status.Error(codes.NotFound, "missing"), "get Restaurante/x")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	cause := status.Error(codes.Unavailable, "down")
	err = mapFirestoreError(cause, "get Restaurante/x")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get Restaurante/x")
}
