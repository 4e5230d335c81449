package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Fetcher reads the raw artifact bytes from its location.
type Fetcher interface {
	Fetch(ctx context.Context) (name string, data []byte, err error)
	Location() string
}

// NewFetcher picks an HTTP fetcher for http(s) URLs and a file fetcher otherwise.
func NewFetcher(location string, client *http.Client) Fetcher {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPFetcher(location, client)
	}
	return NewFileFetcher(location)
}

type FileFetcher struct {
	path string
}

func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) Location() string {
	return f.path
}

func (f *FileFetcher) Fetch(ctx context.Context) (string, []byte, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return "", nil, fmt.Errorf("file does not exist: %s", f.path)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("artifact location is a directory: %s", f.path)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return filepath.Base(f.path), data, nil
}

type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{url: url, client: client}
}

func (f *HTTPFetcher) Location() string {
	return f.url
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("artifact not found: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return nameFromURL(f.url), data, nil
}

func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "document"
	}
	return path.Base(u.Path)
}
