package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

const announcementCachePattern = "annc:feed:*"

type announcementRepository interface {
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	Create(ctx context.Context, a *models.Announcement) error
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type announcementCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// announcementFeedPage is the cached shape of one feed page.
type announcementFeedPage struct {
	Announcements []models.Announcement `json:"announcements"`
	Total         int                   `json:"total"`
}

// AnnouncementRequest creates or updates an announcement.
type AnnouncementRequest struct {
	Title    string                      `json:"title" validate:"required,min=3,max=200"`
	Content  string                      `json:"content" validate:"required,min=3"`
	Audience models.AnnouncementAudience `json:"audience" validate:"required,oneof=All Teachers Students"`
}

// AnnouncementService provides announcement use cases. The feed is filtered
// by the viewer's role and served through a short Redis cache; only admins
// write, and every write invalidates the cached feed pages.
type AnnouncementService struct {
	repo      announcementRepository
	cache     announcementCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService instance. A nil
// cache disables feed caching.
func NewAnnouncementService(repo announcementRepository, cache announcementCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AnnouncementService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func announcementCacheKey(filter models.AnnouncementFilter) string {
	return fmt.Sprintf("annc:feed:%s:p%d:s%d", filter.ViewerRole, filter.Page, filter.PageSize)
}

// List returns the feed visible to the viewer.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	filter.Page = page
	filter.PageSize = pageSize

	key := announcementCacheKey(filter)
	if s.cache != nil {
		var cached announcementFeedPage
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached.Announcements, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: cached.Total}, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("announcement cache read failed", zap.Error(err))
		}
	}

	announcements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}

	if s.cache != nil {
		entry := announcementFeedPage{Announcements: announcements, Total: total}
		if err := s.cache.Set(ctx, key, entry, s.cacheTTL); err != nil {
			s.logger.Warn("announcement cache write failed", zap.Error(err))
		}
	}
	return announcements, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *AnnouncementService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, announcementCachePattern); err != nil {
		s.logger.Warn("announcement cache invalidation failed", zap.Error(err))
	}
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, authorID string, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	a := &models.Announcement{
		Title:     req.Title,
		Content:   req.Content,
		Audience:  req.Audience,
		CreatedBy: authorID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.invalidateFeed(ctx)
	return a, nil
}

// Update edits an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	a.Title = req.Title
	a.Content = req.Content
	a.Audience = req.Audience
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	s.invalidateFeed(ctx)
	return a, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	s.invalidateFeed(ctx)
	return nil
}
