package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOEmbedClient_Defaults(t *testing.T) {
	c := NewOEmbedClient("", 0)

	if c.endpoint != DefaultOEmbedEndpoint {
		t.Errorf("Expected default endpoint, got %q", c.endpoint)
	}
	if c.timeout != DefaultLookupTimeout {
		t.Errorf("Expected default timeout, got %v", c.timeout)
	}
}

func TestOEmbedClient_Title(t *testing.T) {
	var gotURL, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Never Gonna Give You Up","author_name":"Rick Astley","type":"video"}`))
	}))
	defer server.Close()

	c := NewOEmbedClient(server.URL, time.Second)
	title, err := c.Title(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if title != "Never Gonna Give You Up" {
		t.Errorf("Expected title, got %q", title)
	}
	if gotURL != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("Expected video URL in query, got %q", gotURL)
	}
	if gotFormat != "json" {
		t.Errorf("Expected format=json, got %q", gotFormat)
	}
}

func TestOEmbedClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewOEmbedClient(server.URL, time.Second).Title(context.Background(), "https://youtu.be/aaaaaaaaaaa")
	if !errors.Is(err, ErrLookupStatus) {
		t.Errorf("Expected ErrLookupStatus, got %v", err)
	}
}

func TestOEmbedClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	if _, err := NewOEmbedClient(server.URL, time.Second).Title(context.Background(), "https://youtu.be/aaaaaaaaaaa"); err == nil {
		t.Error("Expected error for malformed body")
	}
}

func TestOEmbedClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewOEmbedClient(server.URL, 50*time.Millisecond).Title(context.Background(), "https://youtu.be/aaaaaaaaaaa")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Lookup did not honor its timeout: took %v", time.Since(start))
	}
}

func TestResolver_WithOEmbedServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "https://youtu.be/bbbbbbbbbbb" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"title":"Found"}`))
	}))
	defer server.Close()

	r := New(NewOEmbedClient(server.URL, time.Second), 4)
	entries := r.Resolve(context.Background(), "https://youtu.be/aaaaaaaaaaa, https://youtu.be/bbbbbbbbbbb")

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Found" {
		t.Errorf("Expected title 'Found', got %q", entries[0].Title)
	}
	if entries[1].Title != "" {
		t.Errorf("Expected no title for 404, got %q", entries[1].Title)
	}
}
