package corpus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/experia/internal/model"
)

// DefaultMaxBytes caps the size of a remote corpus
const DefaultMaxBytes = 512 << 20

// Fetcher downloads corpus files served over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch retrieves the corpus body from rawURL. Bodies larger than the
// configured limit are rejected rather than truncated.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("corpus at %s exceeds %d bytes", rawURL, f.maxBytes)
	}

	return body, nil
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Open loads a corpus from a local path or an http(s) URL
func (f *Fetcher) Open(ctx context.Context, location string, cfg model.CorpusConfig) ([]model.Document, Stats, error) {
	if !IsRemote(location) {
		if _, err := os.Stat(location); err != nil {
			return nil, Stats{}, fmt.Errorf("open corpus: %w", err)
		}
		return LoadFile(location, cfg)
	}

	body, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("fetch corpus: %w", err)
	}
	return Load(bytes.NewReader(body), cfg)
}
