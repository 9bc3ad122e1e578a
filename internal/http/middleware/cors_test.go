package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "listed origin",
			allowed:    []string{"https://www.sitecraft.example"},
			method:     http.MethodPost,
			origin:     "https://www.sitecraft.example",
			wantOrigin: "https://www.sitecraft.example",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "case and trailing slash ignored",
			allowed:    []string{"https://WWW.sitecraft.example/"},
			method:     http.MethodGet,
			origin:     "https://www.sitecraft.example",
			wantOrigin: "https://www.sitecraft.example",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "unknown origin still served without headers",
			allowed:    []string{"https://www.sitecraft.example"},
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "wildcard",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			origin:     "https://random.example",
			wantOrigin: "https://random.example",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "blank entries allow nothing",
			allowed:    []string{" ", ""},
			method:     http.MethodPost,
			origin:     "https://www.sitecraft.example",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "preflight allowed",
			allowed:    []string{"https://www.sitecraft.example"},
			method:     http.MethodOptions,
			origin:     "https://www.sitecraft.example",
			preflight:  true,
			wantOrigin: "https://www.sitecraft.example",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "preflight refused",
			allowed:    []string{"https://www.sitecraft.example"},
			method:     http.MethodOptions,
			origin:     "https://evil.example",
			preflight:  true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no origin header",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/intake", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, called)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, corsAllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, corsAllowHeaders, rec.Header().Get("Access-Control-Allow-Headers"))
			}
		})
	}
}
