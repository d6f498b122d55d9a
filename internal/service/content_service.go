package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/models"
	"github.com/altius-academy/academy-api/pkg/config"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

// ContentService fetches interactive activity documents from the external
// content store, caching responses in Redis. Lookups degrade to NotFound
// so a content-store outage never blocks the submission path.
type ContentService struct {
	baseURL string
	client  *http.Client
	cache   *CacheService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewContentService constructs a ContentService.
func NewContentService(cfg config.ContentConfig, cache *CacheService, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ContentService{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		ttl:     cfg.CacheTTL,
		logger:  logger,
	}
}

// GetActivity returns the activity document for the given content id.
func (s *ContentService) GetActivity(ctx context.Context, contentID int64) (*models.ActivityContent, error) {
	key := fmt.Sprintf("content:activity:%d", contentID)

	var cached models.ActivityContent
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	content, err := s.fetch(ctx, contentID)
	if err != nil {
		s.logger.Warn("activity content lookup failed", zap.Int64("content_id", contentID), zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity content not found")
	}

	if err := s.cache.Set(ctx, key, content, s.ttl); err != nil {
		s.logger.Warn("failed to cache activity content", zap.Int64("content_id", contentID), zap.Error(err))
	}

	return content, nil
}

func (s *ContentService) fetch(ctx context.Context, contentID int64) (*models.ActivityContent, error) {
	url := fmt.Sprintf("%s/activities/%d", s.baseURL, contentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch activity content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content store returned status %d", resp.StatusCode)
	}

	var content models.ActivityContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("decode activity content: %w", err)
	}
	return &content, nil
}
