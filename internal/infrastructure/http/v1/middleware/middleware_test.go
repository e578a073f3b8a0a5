package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/infrastructure/storage/postgres"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if token != "good" {
		return nil, errors.New("bad signature")
	}
	return &appctx.UserContext{UserID: "u-1", Name: "Storekeeper"}, nil
}

type memoryStore struct {
	mu        sync.Mutex
	completed map[string]*postgres.IdempotencyReplay
	failed    map[string]int
	released  []string
	acquired  []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		completed: make(map[string]*postgres.IdempotencyReplay),
		failed:    make(map[string]int),
	}
}

func (s *memoryStore) AcquireKey(_ context.Context, key, userID, operation, _ string) (*postgres.IdempotencyReplay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired = append(s.acquired, userID+"|"+operation)
	if r, ok := s.completed[key]; ok {
		return r, nil
	}
	return nil, nil
}

func (s *memoryStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, _ := json.Marshal(response)
	s.completed[key] = &postgres.IdempotencyReplay{StatusCode: statusCode, ContentType: contentType, Body: body}
	return nil
}

func (s *memoryStore) FailKey(_ context.Context, key string, statusCode int, _ string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[key] = statusCode
	return nil
}

func (s *memoryStore) ReleaseKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, key)
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTrace(t *testing.T) {
	r := gin.New()
	r.Use(Trace())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetRequestID(c.Request.Context()))
	})

	t.Run("generates ids", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
		assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
		assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "req-42")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "req-42", w.Body.String())
	})
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Auth(staticValidator{}))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, appctx.GetUserID(c.Request.Context()))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u-1", w.Body.String())
			} else {
				assert.Equal(t, apperror.CodeUnauthorized, decodeError(t, w)["code"])
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperror.NewInsufficientStock("loc", "item", "5.0000", "2.0000"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("connection reset"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperror.CodeInsufficientStock, body["code"])
	assert.NotEmpty(t, body["details"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body = decodeError(t, w)
	assert.Equal(t, apperror.CodeInternal, body["code"])
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/boom", func(c *gin.Context) {
		panic("nil map")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, decodeError(t, w)["code"])
}

func TestRecovery_BrokenPipe(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(), Recovery())
	r.GET("/export", func(c *gin.Context) {
		panic(&net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", nil))

	assert.Empty(t, w.Body.String())
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/abort", func(c *gin.Context) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func TestIdempotency(t *testing.T) {
	store := newMemoryStore()
	calls := 0

	r := gin.New()
	r.Use(ErrorHandler(), Idempotency(store))
	r.POST("/issues", func(c *gin.Context) {
		calls++
		resp := gin.H{"number": "ISS-2026-00001"}
		CompleteIdempotency(c, http.StatusCreated, "application/json", resp)
		c.JSON(http.StatusCreated, resp)
	})
	r.POST("/fail", func(c *gin.Context) {
		_ = c.Error(apperror.NewValidation("no lines"))
	})
	r.POST("/race", func(c *gin.Context) {
		_ = c.Error(apperror.NewConcurrentModification("issue", "ISS-2026-00002"))
	})
	r.POST("/down", func(c *gin.Context) {
		_ = c.Error(errors.New("connection refused"))
	})
	r.GET("/issues", func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	post := func(path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"lines":[]}`))
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("first request executes, retry replays", func(t *testing.T) {
		first := post("/issues", "k-1")
		require.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, 1, calls)

		second := post("/issues", "k-1")
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, 1, calls)
		assert.Contains(t, store.acquired, "|POST /issues")
	})

	t.Run("legacy header is honoured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/issues", strings.NewReader(`{}`))
		req.Header.Set("X-Idempotency-Key", "k-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
	})

	t.Run("without key every request executes", func(t *testing.T) {
		before := calls
		post("/issues", "")
		post("/issues", "")
		assert.Equal(t, before+2, calls)
	})

	t.Run("errors are recorded for replay", func(t *testing.T) {
		w := post("/fail", "k-2")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, http.StatusBadRequest, store.failed["k-2"])
	})

	t.Run("transient errors release the key", func(t *testing.T) {
		w := post("/race", "k-4")
		assert.Equal(t, http.StatusConflict, w.Code)
		w = post("/down", "k-5")
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		assert.Equal(t, []string{"k-4", "k-5"}, store.released)
		assert.NotContains(t, store.failed, "k-4")
		assert.NotContains(t, store.failed, "k-5")
	})

	t.Run("GET bypasses the store", func(t *testing.T) {
		n := len(store.acquired)
		req := httptest.NewRequest(http.MethodGet, "/issues", nil)
		req.Header.Set(HeaderIdempotencyKey, "k-3")
		r.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, store.acquired, n)
	})
}
