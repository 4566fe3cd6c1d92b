package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	// A second WriteHeader is ignored.
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Error("Status code should not change after first WriteHeader")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten to be %d, got %d", len(data), rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	config := DefaultLoggingConfig()

	if len(config.SkipPaths) != 0 {
		t.Errorf("Expected empty SkipPaths, got %d items", len(config.SkipPaths))
	}
	if len(config.SkipExtensions) == 0 {
		t.Error("Expected SkipExtensions to have default values")
	}
	if config.LogStaticFiles {
		t.Error("Expected LogStaticFiles to be false by default")
	}
	if !config.LogHealthChecks {
		t.Error("Expected LogHealthChecks to be true by default")
	}
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	called := false
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/audio/artists", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("Expected wrapped handler to be called")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status 418 to pass through, got %d", rec.Code)
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{
			name:   "configured skip path",
			path:   "/metrics",
			config: LoggingConfig{SkipPaths: []string{"/metrics"}},
			want:   true,
		},
		{
			name:   "health check logged by default",
			path:   "/healthz",
			config: LoggingConfig{LogHealthChecks: true},
			want:   false,
		},
		{
			name:   "health check skipped when disabled",
			path:   "/healthz",
			config: LoggingConfig{LogHealthChecks: false},
			want:   true,
		},
		{
			name:   "static extension skipped",
			path:   "/assets/app.js",
			config: DefaultLoggingConfig(),
			want:   true,
		},
		{
			name:   "api path logged",
			path:   "/api/video/movies",
			config: DefaultLoggingConfig(),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "GET", "GET"},
		{"newline replaced", "a\nb", "a b"},
		{"carriage return replaced", "a\rb", "a b"},
		{"null byte stripped", "a\x00b", "ab"},
		{"ansi escape stripped", "a\x1b[31mb", "a[31mb"},
		{"tab kept", "a\tb", "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr",
			remoteAddr: "192.168.1.10:54321",
			want:       "192.168.1.10",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain uses first",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"curl/8.0", "curl/8.0"},
		{"Mozilla Firefox", "\"Mozilla Firefox\""},
		{"say \"hi\"", "\"say \"\"hi\"\"\""},
	}
	for _, tt := range tests {
		if got := escapeW3CField(tt.input); got != tt.want {
			t.Errorf("escapeW3CField(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}

	// Skipped paths are passed through untouched.
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 on skipped path, got %d", rec.Code)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/api/audio/artists", "/api/audio/artists"},
		{"/api/audio/artists/0123456789abcdef", "/api/audio/artists/{path}"},
		{"/api/files/0123456789abcdef/path", "/api/files/0123456789abcdef/{path}"},
		{"/healthz", "/healthz"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.input); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultCompressionConfig(t *testing.T) {
	config := DefaultCompressionConfig()

	if config.MinSize != 1024 {
		t.Errorf("Expected MinSize 1024, got %d", config.MinSize)
	}
	if config.Level != gzip.DefaultCompression {
		t.Errorf("Expected Level to be DefaultCompression (%d), got %d", gzip.DefaultCompression, config.Level)
	}

	found := false
	for _, ct := range config.CompressibleTypes {
		if ct == "application/json" {
			found = true
		}
	}
	if !found {
		t.Error("Expected application/json to be compressible")
	}
}

func TestCompressionMiddleware(t *testing.T) {
	largeJSON := `{"results":["` + strings.Repeat("x", 2048) + `"]}`
	smallJSON := `{"status":"ready"}`

	tests := []struct {
		name              string
		body              string
		contentType       string
		acceptEncoding    string
		expectCompression bool
	}{
		{
			name:              "large JSON with gzip support",
			body:              largeJSON,
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: true,
		},
		{
			name:              "small JSON stays uncompressed",
			body:              smallJSON,
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "non-compressible content type",
			body:              strings.Repeat("x", 2048),
			contentType:       "application/octet-stream",
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "client without gzip support",
			body:              largeJSON,
			contentType:       "application/json",
			acceptEncoding:    "",
			expectCompression: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(tt.body))
			})

			wrapped := Compression(DefaultCompressionConfig())(handler)

			req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			compressed := rec.Header().Get("Content-Encoding") == "gzip"
			if compressed != tt.expectCompression {
				t.Fatalf("compression = %v, want %v", compressed, tt.expectCompression)
			}

			got := rec.Body.String()
			if compressed {
				gr, err := gzip.NewReader(rec.Body)
				if err != nil {
					t.Fatalf("Failed to create gzip reader: %v", err)
				}
				decoded, err := io.ReadAll(gr)
				if err != nil {
					t.Fatalf("Failed to decompress body: %v", err)
				}
				got = string(decoded)
			}
			if got != tt.body {
				t.Errorf("body mismatch after round trip (%d bytes vs %d)", len(got), len(tt.body))
			}
		})
	}
}

func TestCompressionWithMultipleWrites(t *testing.T) {
	chunk := strings.Repeat("a", 512)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for i := 0; i < 4; i++ {
			w.Write([]byte(chunk))
		}
	})

	wrapped := Compression(DefaultCompressionConfig())(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("Expected compressed response for chunked writes")
	}

	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("Failed to decompress body: %v", err)
	}
	if len(decoded) != 4*len(chunk) {
		t.Errorf("Decompressed length = %d, want %d", len(decoded), 4*len(chunk))
	}
}
