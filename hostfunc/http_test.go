package hostfunc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPGetBlockedWhenNoHosts(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: nil})
	_, err := h.Get(context.Background(), "https://example.com")
	if err == nil || err.Error() != "http not enabled" {
		t.Errorf("expected 'http not enabled', got %v", err)
	}
}

func TestHTTPGetBlockedHosts(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"allowed.com"}})

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"unallowed host", "https://evil.com", "host not allowed: evil.com"},
		{"query param bypass", "https://evil.com/?x=allowed.com", "host not allowed: evil.com"},
		{"subdomain suffix bypass", "https://allowed.com.evil.com/", "host not allowed: allowed.com.evil.com"},
		{"bad scheme", "ftp://allowed.com/x", "scheme must be http or https"},
		{"empty", "", "url required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Get(context.Background(), tt.url)
			if err == nil || err.Error() != tt.want {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHTTPURLTooLong(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"allowed.com"}, MaxURLLength: 20})
	_, err := h.Get(context.Background(), "https://allowed.com/"+strings.Repeat("a", 50))
	if err == nil || err.Error() != "url exceeds max length" {
		t.Errorf("expected url length error, got %v", err)
	}
}

func TestHTTPGetAllowsExactHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}})
	body, err := h.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != `{"ok": true}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHTTPPostAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		w.Write([]byte(r.Method + ":" + string(data)))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}})
	body, err := h.Post(context.Background(), server.URL, "ping")
	if err != nil {
		t.Fatal(err)
	}
	if body != "POST:ping" {
		t.Errorf("unexpected body %q", body)
	}

	if _, err := h.Get(context.Background(), server.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestHTTPBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}, MaxBodySize: 10})
	body, err := h.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(body) != 10 {
		t.Errorf("expected body truncated to 10 bytes, got %d", len(body))
	}
}

func TestHTTPRegisteredWithContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	r := NewRegistry()
	if err := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}}).Register(r); err != nil {
		t.Fatal(err)
	}
	d, ok := r.Get("http_get")
	if !ok {
		t.Fatal("http_get not registered")
	}
	if d.Signature.String() != "(text) -> text" {
		t.Errorf("signature = %s", d.Signature)
	}

	got, err := r.CallString(context.Background(), "http_get", `["`+server.URL+`"]`)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := got.Text(); s != "hello" {
		t.Errorf("http_get = %s", got)
	}
}
