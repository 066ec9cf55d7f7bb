package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesWrappedAppError(t *testing.T) {
	err := fmt.Errorf("submit rating: %w", NotOwner("not yours"))

	assert.True(t, Is(err, CodeNotOwner))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(stderrors.New("plain"), CodeNotOwner))
}

func TestStoreUnavailable_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("deadline exceeded")
	err := StoreUnavailable("store unavailable", cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestRestaurantNotFound_Message(t *testing.T) {
	err := RestaurantNotFound("abc", nil)

	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "RESTAURANT_NOT_FOUND: restaurant abc not found", err.Error())
}
