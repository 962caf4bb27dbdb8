package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/mimosa-toolkit/internal/model"
)

func TestStatusRecorder(t *testing.T) {
	tests := []struct {
		name       string
		write      func(rec *statusRecorder)
		wantStatus int
	}{
		{
			name:       "default",
			write:      func(_ *statusRecorder) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "body only",
			write:      func(rec *statusRecorder) { _, _ = rec.Write([]byte("ok")) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "explicit status",
			write:      func(rec *statusRecorder) { rec.WriteHeader(http.StatusNotFound) },
			wantStatus: http.StatusNotFound,
		},
		{
			name: "first status wins",
			write: func(rec *statusRecorder) {
				rec.WriteHeader(http.StatusInternalServerError)
				rec.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			w := httptest.NewRecorder()
			rec := newStatusRecorder(w)

			// Act
			tt.write(rec)

			// Assert
			if rec.status != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.status, tt.wantStatus)
			}
			if rec.Unwrap() != w {
				t.Error("Unwrap() should return the wrapped writer")
			}
		})
	}
}

func TestStatusRecorder_HijackNotSupported(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())

	_, _, err := rec.Hijack()

	if err != http.ErrNotSupported {
		t.Errorf("Hijack() error = %v, want http.ErrNotSupported", err)
	}
}

func TestChain(t *testing.T) {
	// Arrange
	var order []string

	middleware1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m1-before")
			next.ServeHTTP(w, r)
			order = append(order, "m1-after")
		})
	}

	middleware2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "m2-before")
			next.ServeHTTP(w, r)
			order = append(order, "m2-after")
		})
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	})

	// Act
	chain := Chain(middleware1, middleware2)
	wrapped := chain(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	// Assert
	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if len(order) != len(expected) {
		t.Fatalf("order length = %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("order[%d] = %s, want %s", i, order[i], v)
		}
	}
}

func TestLogging_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"ok", http.StatusOK},
		{"not found", http.StatusNotFound},
		{"spawn failure", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			core, logs := observer.New(zapcore.DebugLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			wrapped := Logging(zap.New(core))(handler)

			req := httptest.NewRequest(http.MethodGet, "/spawn", nil)
			rr := httptest.NewRecorder()

			// Act
			wrapped.ServeHTTP(rr, req)

			// Assert
			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("logged %d entries, want 1", len(entries))
			}
			if got := entries[0].ContextMap()["status"]; got != int64(tt.status) {
				t.Errorf("logged status = %v, want %d", got, tt.status)
			}
		})
	}
}

func TestRecovery_RecoversPanic(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	handler := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("test panic")
	})

	middleware := Recovery(logger)
	wrapped := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	// Act - Should not panic
	wrapped.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	var body model.FailureResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.OK || body.Error != "test panic" {
		t.Errorf("body = %+v, want ok=false error=test panic", body)
	}
}

func TestRequestID(t *testing.T) {
	// Arrange
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that request ID is set in request header
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			t.Error("Request ID should be set in request header")
		}
		w.WriteHeader(http.StatusOK)
	})

	middleware := RequestID()
	wrapped := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	// Act
	wrapped.ServeHTTP(rr, req)

	// Assert
	responseID := rr.Header().Get(RequestIDHeader)
	if responseID == "" {
		t.Error("Request ID should be set in response header")
	}
}

func TestRequestID_ExistingID(t *testing.T) {
	// Arrange
	existingID := "existing-request-id-123"
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID != existingID {
			t.Errorf("Request ID = %s, want %s", requestID, existingID)
		}
		w.WriteHeader(http.StatusOK)
	})

	middleware := RequestID()
	wrapped := middleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, existingID)
	rr := httptest.NewRecorder()

	// Act
	wrapped.ServeHTTP(rr, req)

	// Assert
	responseID := rr.Header().Get(RequestIDHeader)
	if responseID != existingID {
		t.Errorf("Response Request ID = %s, want %s", responseID, existingID)
	}
}

func TestRequestID_GeneratesUniqueIDs(t *testing.T) {
	// Arrange
	middleware := RequestID()
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := middleware(handler)

	ids := make(map[string]bool)
	numRequests := 100

	// Act
	for i := 0; i < numRequests; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)

		id := rr.Header().Get(RequestIDHeader)
		if ids[id] {
			t.Errorf("Duplicate request ID generated: %s", id)
		}
		ids[id] = true
	}

	// Assert
	if len(ids) != numRequests {
		t.Errorf("Generated %d unique IDs, want %d", len(ids), numRequests)
	}
}

func TestMetrics_CountsByServerAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		server string
		status int
	}{
		{"probe ok", "metrics-test-probe", http.StatusOK},
		{"probe spawn failure", "metrics-test-probe", http.StatusInternalServerError},
		{"catalog not found", "metrics-test-catalog", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			wrapped := Metrics(tt.server)(handler)
			counter := httpRequestsTotal.WithLabelValues(tt.server, http.MethodGet, "/spawn", strconv.Itoa(tt.status))
			before := testutil.ToFloat64(counter)

			// Act
			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/spawn", nil))

			// Assert
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("http_requests_total delta = %v, want 1", got)
			}
			if inFlight := testutil.ToFloat64(httpRequestsInFlight.WithLabelValues(tt.server)); inFlight != 0 {
				t.Errorf("http_requests_in_flight = %v, want 0", inFlight)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		preflight   bool
		wantStatus  int
		wantHandled bool
	}{
		{name: "simple request", method: http.MethodGet, wantStatus: http.StatusOK, wantHandled: true},
		{name: "preflight", method: http.MethodOptions, preflight: true, wantStatus: http.StatusNoContent},
		{name: "plain options", method: http.MethodOptions, wantStatus: http.StatusOK, wantHandled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			handled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				handled = true
				w.WriteHeader(http.StatusOK)
			})
			wrapped := CORS(http.MethodGet, http.MethodOptions)(handler)

			req := httptest.NewRequest(tt.method, "/spawn", nil)
			req.Header.Set("Origin", "http://scanner.local")
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rr := httptest.NewRecorder()

			// Act
			wrapped.ServeHTTP(rr, req)

			// Assert
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if handled != tt.wantHandled {
				t.Errorf("handler called = %v, want %v", handled, tt.wantHandled)
			}

			wantHeaders := map[string]string{
				"Access-Control-Allow-Origin":   "*",
				"Access-Control-Allow-Methods":  "GET, OPTIONS",
				"Access-Control-Allow-Headers":  "Content-Type, X-Request-ID",
				"Access-Control-Expose-Headers": "X-Request-ID",
				"Access-Control-Max-Age":        "86400",
			}
			for name, want := range wantHeaders {
				if got := rr.Header().Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestRequestIDFromContext(t *testing.T) {
	// Arrange
	var got string
	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = RequestIDFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")

	// Act
	RequestID()(handler).ServeHTTP(httptest.NewRecorder(), req)

	// Assert
	if got != "req-42" {
		t.Errorf("RequestIDFromContext() = %q, want %q", got, "req-42")
	}
	if empty := RequestIDFromContext(context.Background()); empty != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", empty)
	}
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		want      string
	}{
		{
			name:      "with request ID",
			requestID: "test-id-123",
			want:      "test-id-123",
		},
		{
			name:      "without request ID",
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}

			// Act
			got := getRequestID(req)

			// Assert
			if got != tt.want {
				t.Errorf("getRequestID() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMiddlewareChainIntegration(t *testing.T) {
	// Arrange
	logger := zap.NewNop()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request ID is set
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("Request ID should be set by middleware")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Create middleware chain
	chain := Chain(
		Recovery(logger),
		RequestID(),
		Logging(logger),
		Metrics("test"),
		CORS(http.MethodGet),
	)
	wrapped := chain(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	// Act
	wrapped.ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("Response should have Request ID header")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Response should have CORS headers")
	}
}

func TestLogging_RecordsQuery(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.DebugLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	wrapped := Logging(zap.New(core))(handler)

	req := httptest.NewRequest(http.MethodGet, "/spawn?cmd=id", nil)
	rr := httptest.NewRecorder()

	// Act
	wrapped.ServeHTTP(rr, req)

	// Assert
	if logs.Len() != 1 {
		t.Fatalf("log entries = %d, want 1", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("level = %s, want info", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["query"] != "cmd=id" {
		t.Errorf("query = %v, want cmd=id", fields["query"])
	}
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v, want %d", fields["status"], http.StatusTeapot)
	}
}

func TestLogging_QuietPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			wrapped := Logging(zap.New(core))(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

			if logs.Len() != 1 || logs.All()[0].Level != zapcore.DebugLevel {
				t.Errorf("%s should be logged once at debug level", path)
			}
		})
	}
}

func TestNormalizeRequestPath(t *testing.T) {
	// Arrange
	var got string
	router := mux.NewRouter()
	router.HandleFunc("/api/products/{id}", func(_ http.ResponseWriter, r *http.Request) {
		got = normalizeRequestPath(r)
	})

	// Act
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products/42", nil))

	// Assert
	if got != "/api/products/{id}" {
		t.Errorf("normalizeRequestPath() = %s, want /api/products/{id}", got)
	}

	unrouted := httptest.NewRequest(http.MethodGet, "/raw/path", nil)
	if p := normalizeRequestPath(unrouted); p != "/raw/path" {
		t.Errorf("normalizeRequestPath() = %s, want /raw/path", p)
	}
}
