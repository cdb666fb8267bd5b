package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"junctionflow/config"
)

const sampleBody = `{
	"21:J19": {
		"junctionName": "J19",
		"primaryDownstreamJunctionSection": {"avgSpeed": 64.3219, "links": [{"direction": "Northbound", "speedLimit": 70}]},
		"secondaryUpstreamJunctionSection": {"avgSpeed": 58.1, "links": [{"direction": "Southbound", "speedLimit": 70}]}
	}
}`

func newTestClient(url string) *Client {
	return NewClient(config.FeedConfig{
		URL:       url,
		Road:      "M1",
		Timeout:   2 * time.Second,
		UserAgent: "junctionflow-test",
	})
}

func TestFetch(t *testing.T) {
	var gotRoad, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRoad = r.URL.Query().Get("roadName")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL + "/api/network/getJunctionSections").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if gotRoad != "M1" {
		t.Errorf("roadName = %q, want %q", gotRoad, "M1")
	}
	if gotUA != "junctionflow-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if _, ok := resp["21:J19"]; !ok {
		t.Errorf("response missing 21:J19, got %d keys", len(resp))
	}
}

func TestRequestURLKeepsExistingQuery(t *testing.T) {
	c := newTestClient("https://example.com/api?format=json")
	got, err := c.RequestURL()
	if err != nil {
		t.Fatalf("RequestURL() error: %v", err)
	}
	if !strings.Contains(got, "format=json") || !strings.Contains(got, "roadName=M1") {
		t.Errorf("RequestURL() = %q", got)
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", netErr.StatusCode)
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Fetch(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", netErr.StatusCode)
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(config.FeedConfig{URL: srv.URL, Road: "M1", Timeout: 50 * time.Millisecond})
	_, err := c.Fetch(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}

func TestFetchBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := NewClient(config.FeedConfig{URL: srv.URL, Road: "M1", Timeout: time.Second, MaxBodyBytes: 16})
	_, err := c.Fetch(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !errors.Is(err, errBodyTooLarge) {
		t.Errorf("expected errBodyTooLarge, got %v", err)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantLen int
	}{
		{"object", sampleBody, false, 1},
		{"empty object", `{}`, false, 0},
		{"null", `null`, true, 0},
		{"array", `[{"junctionName":"J1"}]`, true, 0},
		{"truncated", `{"21:J19": {`, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.body))
			if tt.wantErr {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected ParseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
