package corpus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/experia/internal/model"
)

const smallCorpus = `[{"id":"r1","review":"A warm record. It sat in my chest all week.","source":"Outlet-A","genre":"Rock"}]`

func TestFetcher_OpenRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, smallCorpus)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 0)
	docs, stats, err := f.Open(context.Background(), server.URL+"/corpus.json", model.CorpusConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(docs) != 1 || stats.Kept != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].ID != "r1" || len(docs[0].Sentences) != 2 {
		t.Errorf("Unexpected document: %+v", docs[0])
	}
}

func TestFetcher_OpenLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, []byte(smallCorpus), 0644); err != nil {
		t.Fatalf("Failed to write corpus: %v", err)
	}

	docs, _, err := NewFetcher(time.Second, "test-agent", 0).Open(context.Background(), path, model.CorpusConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("Expected 1 document, got %d", len(docs))
	}
}

func TestFetcher_OpenMissingFile(t *testing.T) {
	_, _, err := NewFetcher(time.Second, "test-agent", 0).Open(context.Background(), "/nonexistent/corpus.json", model.CorpusConfig{})
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestFetcher_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second, "test-agent", 0).Fetch(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 error, got %v", err)
	}
}

func TestFetcher_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 64))
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second, "test-agent", 16).Fetch(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/c.json": true,
		"http://localhost/c.json":    true,
		"data/corpus.json":           false,
		"/tmp/https.json":            false,
	}
	for loc, want := range tests {
		if got := IsRemote(loc); got != want {
			t.Errorf("IsRemote(%q) = %v, expected %v", loc, got, want)
		}
	}
}
