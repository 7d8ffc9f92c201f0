package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/capture"
)

func serve(s http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Run("bare server", func(t *testing.T) {
		rec := serve(New(Config{}), http.MethodGet, "/api/health")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var resp healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if resp.Status != "ok" || resp.Uptime == "" {
			t.Errorf("health = %+v", resp)
		}
		for name, on := range resp.Components {
			if on {
				t.Errorf("component %s reported without a collaborator", name)
			}
		}
	})

	t.Run("reports attached collaborators", func(t *testing.T) {
		cam := capture.NewMockCamera(nil, false)
		s := New(Config{Camera: cam, Events: NewEventsHandler(nil)})

		var resp healthResponse
		json.NewDecoder(serve(s, http.MethodGet, "/api/health").Body).Decode(&resp)
		if !resp.Components["events"] || resp.Components["camera"] {
			t.Errorf("components before open = %v", resp.Components)
		}

		cam.Open()
		json.NewDecoder(serve(s, http.MethodGet, "/api/health").Body).Decode(&resp)
		if !resp.Components["camera"] {
			t.Errorf("components after open = %v", resp.Components)
		}
	})

	t.Run("GET only", func(t *testing.T) {
		s := New(Config{})
		for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			if rec := serve(s, m, "/api/health"); rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s: status = %d", m, rec.Code)
			}
		}
	})
}

func TestServer_Routes(t *testing.T) {
	s := New(Config{})

	tests := []struct {
		path string
		want int
	}{
		{"/api/nonexistent", http.StatusNotFound},
		{"/", http.StatusNotFound},
		{"/api/commands", http.StatusOK},
		// collaborators are not attached
		{"/api/status", http.StatusNotFound},
		{"/api/samples", http.StatusNotFound},
		{"/api/voice", http.StatusNotFound},
		{"/api/detection", http.StatusNotFound},
		{"/api/sessions", http.StatusNotFound},
		{"/api/actions", http.StatusNotFound},
		{"/api/events", http.StatusNotFound},
		{"/api/stream", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := serve(s, http.MethodGet, tt.path); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	rec := serve(New(Config{}), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in /metrics output")
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"index.html": "<html><body>mudra</body></html>",
		"app.js":     "console.log('ready')",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		name, path string
		code       int
		body       string
	}{
		{"index at root", "/", http.StatusOK, files["index.html"]},
		{"asset", "/app.js", http.StatusOK, files["app.js"]},
		{"missing", "/missing.css", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodGet, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestServer_HTTPServer(t *testing.T) {
	s := New(Config{})
	hs := s.HTTPServer("127.0.0.1:0")
	if hs.Handler != s || hs.Addr != "127.0.0.1:0" {
		t.Errorf("HTTPServer() = %+v", hs)
	}
	if hs.ReadHeaderTimeout == 0 {
		t.Error("ReadHeaderTimeout not set")
	}
}
