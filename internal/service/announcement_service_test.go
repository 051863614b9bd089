package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type mockAnnouncementRepo struct {
	announcements []models.Announcement
	listCalls     int
}

func (m *mockAnnouncementRepo) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	for i := range m.announcements {
		if m.announcements[i].ID == id {
			return &m.announcements[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAnnouncementRepo) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	m.listCalls++
	return m.announcements, len(m.announcements), nil
}

func (m *mockAnnouncementRepo) Create(ctx context.Context, a *models.Announcement) error {
	a.ID = "a-new"
	m.announcements = append(m.announcements, *a)
	return nil
}

func (m *mockAnnouncementRepo) Update(ctx context.Context, a *models.Announcement) error {
	return nil
}

func (m *mockAnnouncementRepo) Delete(ctx context.Context, id string) error {
	return nil
}

// memoryCache mimics the Redis cache repository with an in-process map.
type memoryCache struct {
	entries map[string][]byte
	deletes []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deletes = append(c.deletes, pattern)
	c.entries = map[string][]byte{}
	return nil
}

func TestAnnouncementFeedSecondReadServedFromCache(t *testing.T) {
	repo := &mockAnnouncementRepo{announcements: []models.Announcement{
		{ID: "a1", Title: "Sports day", Audience: models.AnnouncementAudienceAll},
	}}
	cache := newMemoryCache()
	svc := NewAnnouncementService(repo, cache, time.Minute, validator.New(), zap.NewNop())

	filter := models.AnnouncementFilter{ViewerRole: models.RoleStudent, Page: 1, PageSize: 20}

	first, pg, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, 1, pg.TotalCount)

	second, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, repo.listCalls)
}

func TestAnnouncementWriteInvalidatesCachedFeed(t *testing.T) {
	repo := &mockAnnouncementRepo{}
	cache := newMemoryCache()
	svc := NewAnnouncementService(repo, cache, time.Minute, validator.New(), zap.NewNop())

	filter := models.AnnouncementFilter{ViewerRole: models.RoleTeacher, Page: 1, PageSize: 20}
	_, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, cache.entries, 1)

	_, err = svc.Create(context.Background(), "admin-1", AnnouncementRequest{
		Title:    "Parent meeting",
		Content:  "Friday at nine in the main hall.",
		Audience: models.AnnouncementAudienceAll,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"annc:feed:*"}, cache.deletes)
	assert.Empty(t, cache.entries)

	feed, _, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
	assert.Equal(t, 2, repo.listCalls)
}

func TestAnnouncementFeedWithoutCache(t *testing.T) {
	repo := &mockAnnouncementRepo{announcements: []models.Announcement{
		{ID: "a1", Title: "Holiday notice", Audience: models.AnnouncementAudienceStudents},
	}}
	svc := NewAnnouncementService(repo, nil, 0, validator.New(), zap.NewNop())

	feed, _, err := svc.List(context.Background(), models.AnnouncementFilter{ViewerRole: models.RoleStudent})
	require.NoError(t, err)
	assert.Len(t, feed, 1)
	require.NoError(t, svc.Delete(context.Background(), "a1"))
}
