package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/pkg/logger"
	"github.com/AnTengye/contractvigency/backend/pkg/metrics"
)

var (
	ErrSourceNotConfigured = errors.New("source url not configured")
	ErrSourceUnavailable   = errors.New("source unavailable")
)

// maxSourceSize bounds a downloaded spreadsheet.
const maxSourceSize = 64 << 20

// SourceService downloads the published contracts spreadsheet.
type SourceService struct {
	config     *config.SourceConfig
	cache      BlobCache
	httpClient *http.Client
}

// NewSourceService creates a fetcher; cache may be nil.
func NewSourceService(cfg *config.SourceConfig, cache BlobCache) *SourceService {
	return &SourceService{
		config: cfg,
		cache:  cache,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// URL returns the configured source location.
func (s *SourceService) URL() string {
	return s.config.URL
}

// Fetch returns the spreadsheet bytes and the file name taken from the URL.
func (s *SourceService) Fetch(ctx context.Context) ([]byte, string, error) {
	if s.config.URL == "" {
		return nil, "", ErrSourceNotConfigured
	}
	filename := sourceFilename(s.config.URL)
	key := SourceCacheKey(s.config.URL)

	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			metrics.IncrementSourceFetch("hit")
			logger.Debug(ctx, "source served from cache", "url", s.config.URL, "size", len(data))
			return data, filename, nil
		}
	}

	data, err := s.download(ctx)
	if err != nil {
		metrics.IncrementSourceFetch("error")
		return nil, "", err
	}
	metrics.IncrementSourceFetch("miss")

	if s.cache != nil {
		s.cache.Set(ctx, key, data)
	}
	return data, filename, nil
}

func (s *SourceService) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrSourceUnavailable, err)
	}
	if len(data) > maxSourceSize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrSourceUnavailable, maxSourceSize)
	}

	logger.Info(ctx, "source downloaded", "url", s.config.URL, "size", len(data))
	return data, nil
}

func sourceFilename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "source.xlsx"
	}
	return path.Base(u.Path)
}
