// Package corpus provides the regulatory text, downloading it on first use
// and caching it on disk afterwards.
package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"aicodeguard/internal/domain"
)

// maxDocumentSize bounds the downloaded regulation text.
const maxDocumentSize = 32 << 20

// Source serves the regulation text from a local cache file, fetching it
// over HTTP when the cache is absent.
type Source struct {
	url    string
	path   string
	client *http.Client
	logger *log.Logger
}

// NewSource creates a Source caching at path. A nil client uses the default.
func NewSource(url, path string, client *http.Client, logger *log.Logger) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Source{url: url, path: path, client: client, logger: logger.With("component", "corpus")}
}

// Load returns the regulation text, preferring the cached copy.
func (s *Source) Load(ctx context.Context) (string, error) {
	if data, err := os.ReadFile(s.path); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		s.logger.Debug("using cached regulation text", "path", s.path)
		return string(data), nil
	}

	s.logger.Info("downloading regulation text", "url", s.url)
	text, err := s.download(ctx)
	if err != nil {
		return "", err
	}
	if err := s.cache(text); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Source) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build corpus request: %v", domain.ErrConfiguration, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download corpus: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download corpus: unexpected status %d", domain.ErrGateway, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return "", fmt.Errorf("%w: read corpus body: %v", domain.ErrGateway, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("%w: download corpus: empty document", domain.ErrGateway)
	}
	return string(data), nil
}

func (s *Source) cache(text string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("cache corpus: %w", err)
	}
	s.logger.Debug("cached regulation text", "path", s.path, "bytes", len(text))
	return nil
}
