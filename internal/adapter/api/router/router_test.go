package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lugares/internal/adapter/api"
	"lugares/internal/adapter/api/handler"
	"lugares/internal/adapter/api/middleware"
	adapterrepo "lugares/internal/adapter/repository"
	"lugares/internal/domain/repository"
	"lugares/internal/infrastructure/cache"
	"lugares/internal/infrastructure/firebase"
	"lugares/internal/infrastructure/ratelimit"
	ws "lugares/internal/infrastructure/websocket"
	"lugares/internal/usecase"
	"lugares/pkg/config"
	"lugares/pkg/logger"
	"lugares/pkg/response"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestServer(t *testing.T, policies map[string]ratelimit.Policy) (*echo.Echo, repository.DocumentStore) {
	t.Helper()
	log := logger.Discard()
	store := adapterrepo.NewMemoryDocumentStore(5)
	require.NoError(t, store.Set(context.Background(), repository.RestaurantsCollection, "r1", map[string]interface{}{
		"nombre":     "La Esquina",
		"tipoComida": "Comida típica",
	}, false))

	wsManager := ws.NewManager(log)
	snapshots := cache.NoopSnapshotCache{}
	restaurantUseCase := usecase.NewRestaurantUseCase(store, snapshots, config.StrategyTransactional, 2, log)
	ratingUseCase := usecase.NewRatingUseCase(store, config.StrategyTransactional, snapshots, wsManager, log)
	commentUseCase := usecase.NewCommentUseCase(store, log)
	handler.Setup(restaurantUseCase, ratingUseCase, commentUseCase, store, wsManager, nil)

	e := echo.New()
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	authMiddleware := middleware.NewAuthMiddleware(firebase.NewDevTokenVerifier(), log)
	rateLimit := middleware.NewRateLimitMiddleware(ratelimit.NewRateLimiter(policies), log)
	e.Use(middleware.Metrics())
	Setup(e, authMiddleware, rateLimit)
	SetupDevRouter(e, config.AuthDev)
	return e, store
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

var (
	anaToken  = firebase.DevToken("uid-ana", "ana@example.com")
	betoToken = firebase.DevToken("uid-beto", "beto@example.com")
)

func TestRating_RequiresAuthentication(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", "", `{"value":4}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NOT_AUTHENTICATED", errorCode(env))

	rec, env = do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", "not-a-dev-token", `{"value":4}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NOT_AUTHENTICATED", errorCode(env))
}

func TestRating_SubmitAndReadBack(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", anaToken, `{"value":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"average":4,"count":1}`, string(env.Data))

	rec, env = do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", betoToken, `{"value":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"average":3,"count":2}`, string(env.Data))

	rec, env = do(t, e, http.MethodGet, "/v1/restaurants/r1/rating/me", anaToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rated":true,"value":4}`, string(env.Data))

	rec, env = do(t, e, http.MethodGet, "/v1/restaurants/r1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot struct {
		Rating      float64 `json:"rating"`
		RatingCount int     `json:"rating_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.Equal(t, 3.0, snapshot.Rating)
	assert.Equal(t, 2, snapshot.RatingCount)
}

func TestRating_RejectsBadInput(t *testing.T) {
	e, _ := newTestServer(t, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"out of range", "/v1/restaurants/r1/rating", `{"value":7}`, http.StatusBadRequest, "INVALID_RATING_VALUE"},
		{"fractional", "/v1/restaurants/r1/rating", `{"value":2.5}`, http.StatusBadRequest, "INVALID_RATING_VALUE"},
		{"missing value", "/v1/restaurants/r1/rating", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not a number", "/v1/restaurants/r1/rating", `{"value":"five"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown restaurant", "/v1/restaurants/nope/rating", `{"value":3}`, http.StatusNotFound, "RESTAURANT_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, e, http.MethodPut, tt.path, anaToken, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(env))
		})
	}
}

func TestComments_Lifecycle(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodPut, "/v1/restaurants/r1/comments", anaToken, `{"text":"Buen ajiaco"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var comment struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &comment))
	assert.Equal(t, "r1_uid-ana", comment.ID)

	rec, _ = do(t, e, http.MethodPut, "/v1/restaurants/r1/comments", anaToken, `{"text":"Mejor el sancocho"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, e, http.MethodGet, "/v1/restaurants/r1/comments", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Mejor el sancocho", comments[0].Content)

	rec, env = do(t, e, http.MethodDelete, "/v1/comments/"+comment.ID, betoToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_OWNER", errorCode(env))

	rec, _ = do(t, e, http.MethodDelete, "/v1/comments/"+comment.ID, anaToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := store.Get(context.Background(), repository.CommentsCollection, comment.ID)
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	rec, _ = do(t, e, http.MethodDelete, "/v1/comments/"+comment.ID, anaToken, "")
	assert.Equal(t, http.StatusOK, rec.Code, "deleting twice is fine")

	rec, env = do(t, e, http.MethodPut, "/v1/restaurants/r1/comments", anaToken, `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_COMMENT", errorCode(env))
}

func TestRestaurants_ListAndCategories(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(t, e, http.MethodGet, "/v1/restaurants?q=esquina&page=1&limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page response.PaginatedResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)

	rec, env = do(t, e, http.MethodGet, "/v1/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Comida típica"]`, string(env.Data))

	rec, env = do(t, e, http.MethodGet, "/v1/restaurants/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESTAURANT_NOT_FOUND", errorCode(env))
}

func TestRateLimit_PerCallerAction(t *testing.T) {
	e, _ := newTestServer(t, map[string]ratelimit.Policy{
		ratelimit.ActionSubmitRating: {MaxTokens: 1, RefillRate: 1, RefillTime: time.Hour},
	})

	rec, _ := do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", anaToken, `{"value":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", anaToken, `{"value":5}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(env))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = do(t, e, http.MethodPut, "/v1/restaurants/r1/rating", betoToken, `{"value":5}`)
	assert.Equal(t, http.StatusOK, rec.Code, "budgets are per caller")
}

func TestHealthAndDevToken(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, _ := do(t, e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, e, http.MethodGet, "/_dev/token?uid=uid-ana&email=ana@example.com", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var minted struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &minted))
	assert.Equal(t, anaToken, minted.Token)
}
