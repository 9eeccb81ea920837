package avatar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// passthroughValidator はSSRF検証を素通しし、素のHTTPクライアントを返す。
type passthroughValidator struct {
	validateErr error
}

func (v *passthroughValidator) ValidateURL(_ string) error {
	return v.validateErr
}

func (v *passthroughValidator) NewSafeClient(timeout time.Duration, _ int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// compile-time interface check
var _ SSRFValidator = (*passthroughValidator)(nil)

func TestFetchReturnsImage(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Finedata") {
			t.Errorf("unexpected User-Agent: %s", ua)
		}
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write(payload)
	}))
	defer server.Close()

	f := NewFetcher(&passthroughValidator{}, time.Second, 1024)

	data, mime, err := f.Fetch(context.Background(), server.URL+"/a.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Error("payload mismatch")
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png", mime)
	}
}

func TestFetchDegradesToNoAvatar(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (*Fetcher, string)
	}{
		{
			name: "empty URL",
			setup: func(_ *testing.T) (*Fetcher, string) {
				return NewFetcher(&passthroughValidator{}, time.Second, 1024), ""
			},
		},
		{
			name: "blocked by SSRF guard",
			setup: func(_ *testing.T) (*Fetcher, string) {
				v := &passthroughValidator{validateErr: errors.New("blocked IP address")}
				return NewFetcher(v, time.Second, 1024), "http://10.0.0.1/a.png"
			},
		},
		{
			name: "unreachable host",
			setup: func(_ *testing.T) (*Fetcher, string) {
				return NewFetcher(&passthroughValidator{}, 100*time.Millisecond, 1024), "http://127.0.0.1:1/a.png"
			},
		},
		{
			name: "non-2xx status",
			setup: func(t *testing.T) (*Fetcher, string) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
				t.Cleanup(server.Close)
				return NewFetcher(&passthroughValidator{}, time.Second, 1024), server.URL
			},
		},
		{
			name: "non-image content type",
			setup: func(t *testing.T) (*Fetcher, string) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "text/html")
					w.Write([]byte("<html></html>"))
				}))
				t.Cleanup(server.Close)
				return NewFetcher(&passthroughValidator{}, time.Second, 1024), server.URL
			},
		},
		{
			name: "size limit exceeded",
			setup: func(t *testing.T) (*Fetcher, string) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "image/png")
					w.Write(make([]byte, 2048))
				}))
				t.Cleanup(server.Close)
				return NewFetcher(&passthroughValidator{}, time.Second, 1024), server.URL
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, url := tt.setup(t)

			data, mime, err := f.Fetch(context.Background(), url)
			if err != nil {
				t.Errorf("failures must not return an error: %v", err)
			}
			if data != nil || mime != "" {
				t.Errorf("expected no avatar, got %d bytes mime=%q", len(data), mime)
			}
		})
	}
}

func TestExtractMimeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", "image/png"},
		{"image/jpeg; charset=binary", "image/jpeg"},
		{" IMAGE/GIF ", "image/gif"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractMimeType(tt.in); got != tt.want {
			t.Errorf("extractMimeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
