package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TreeBites/treebites-push/config"
	"github.com/TreeBites/treebites-push/errors"
	"github.com/TreeBites/treebites-push/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware(), ErrorHandler())
	r.Use(mw...)
	return r
}

func TestServiceAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		header     string
		value      string
		wantStatus int
	}{
		{"service key header", "s3cret", "X-Service-Key", "s3cret", http.StatusOK},
		{"bearer", "s3cret", "Authorization", "Bearer s3cret", http.StatusOK},
		{"lowercase bearer", "s3cret", "Authorization", "bearer s3cret", http.StatusOK},
		{"wrong key", "s3cret", "X-Service-Key", "nope", http.StatusUnauthorized},
		{"missing", "s3cret", "", "", http.StatusUnauthorized},
		{"unconfigured key rejects all", "", "X-Service-Key", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(ServiceAuthMiddleware(tt.key))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantDetails string
		wantUp      int
	}{
		{
			name:        "dispatch error keeps gateway body",
			err:         errors.Dispatch(410, `{"reason":"Unregistered"}`),
			wantStatus:  http.StatusBadGateway,
			wantType:    "DISPATCH_ERROR",
			wantDetails: `{"reason":"Unregistered"}`,
			wantUp:      410,
		},
		{
			name:       "token generation",
			err:        errors.TokenGeneration(stderrors.New("bad key")),
			wantStatus: http.StatusInternalServerError,
			wantType:   "TOKEN_GENERATION_ERROR",
		},
		{
			name:       "unimplemented",
			err:        errors.Unimplemented("fcm"),
			wantStatus: http.StatusNotImplemented,
			wantType:   "UNIMPLEMENTED_PROVIDER",
		},
		{
			name:        "validation",
			err:         errors.ValidationFailed("invalid event", "custom requires a title"),
			wantStatus:  http.StatusBadRequest,
			wantType:    "VALIDATION_ERROR",
			wantDetails: "custom requires a title",
		},
		{
			name:       "plain error",
			err:        stderrors.New("kaboom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine()
			r.GET("/x", func(c *gin.Context) { _ = c.Error(tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			require.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantUp, body.UpstreamStatus)
			assert.NotEmpty(t, body.RequestID)
			if tt.wantDetails != "" {
				assert.Equal(t, tt.wantDetails, body.Details)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36)
}

func TestCORSMiddleware(t *testing.T) {
	cfg := &config.ServerConfig{AllowedOrigins: []string{"https://treebites.app", "https://*.treebites.dev"}}
	r := newEngine(CORSMiddleware(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		origin string
		allow  bool
	}{
		{"https://treebites.app", true},
		{"https://staging.treebites.dev", true},
		{"http://staging.treebites.dev", false},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if tt.allow {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
