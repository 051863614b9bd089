package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schooldesk/schooldesk-api/internal/models"
	"github.com/schooldesk/schooldesk-api/internal/service"
	"github.com/schooldesk/schooldesk-api/pkg/response"
)

type fakeGuardianTokens struct {
	tokens map[string]*models.GuardianToken
}

func (f *fakeGuardianTokens) CreateToken(ctx context.Context, token *models.GuardianToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeGuardianTokens) FindToken(ctx context.Context, token string) (*models.GuardianToken, error) {
	gt, ok := f.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return gt, nil
}

func (f *fakeGuardianTokens) RevokeToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, gt := range f.tokens {
		if gt.ID == id {
			gt.Revoked = true
			gt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (f *fakeGuardianTokens) RevokeStudentTokens(ctx context.Context, studentID string) error {
	for _, gt := range f.tokens {
		if gt.StudentID == studentID {
			gt.Revoked = true
		}
	}
	return nil
}

type fakeGuardianUsers struct {
	byIndex map[string]*models.User
	byID    map[string]*models.User
}

func (f *fakeGuardianUsers) FindByIndexNumber(ctx context.Context, indexNumber string) (*models.User, error) {
	u, ok := f.byIndex[indexNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeGuardianUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeGuardianUsers) UpdateGuardianCodeHash(ctx context.Context, id, codeHash string) error {
	if u, ok := f.byID[id]; ok {
		u.GuardianCodeHash = &codeHash
	}
	return nil
}

func (f *fakeGuardianUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newGuardianTestRouter(t *testing.T) (*gin.Engine, *service.GuardianService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("12345678"), bcrypt.MinCost)
	require.NoError(t, err)
	codeHash := string(hash)
	index := "STU-001"
	student := &models.User{ID: "s1", IndexNumber: &index, FullName: "Student One", Role: models.RoleStudent, Active: true, GuardianCodeHash: &codeHash}

	tokens := &fakeGuardianTokens{tokens: map[string]*models.GuardianToken{}}
	users := &fakeGuardianUsers{
		byIndex: map[string]*models.User{"STU-001": student},
		byID:    map[string]*models.User{"s1": student},
	}
	svc := service.NewGuardianService(tokens, users, validator.New(), zap.NewNop(), service.GuardianConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 30 * 24 * time.Hour,
		Issuer:             "schooldesk",
	})

	h := NewGuardianHandler(svc)
	r := gin.New()
	r.POST("/api/guardian/refresh", h.Refresh)
	r.POST("/api/guardian/logout", h.Logout)
	return r, svc
}

func TestGuardianRefreshReadsBearerHeader(t *testing.T) {
	router, svc := newGuardianTestRouter(t)

	session, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: "12345678"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/guardian/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+session.RefreshToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.GuardianSession `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.NotEqual(t, session.RefreshToken, envelope.Data.RefreshToken)
	assert.Equal(t, "s1", envelope.Data.User.StudentID)
}

func TestGuardianRefreshWithoutBearerIsUnauthorized(t *testing.T) {
	router, _ := newGuardianTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/guardian/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
}

func TestGuardianLogoutRevokesBearerToken(t *testing.T) {
	router, svc := newGuardianTestRouter(t)

	session, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: "12345678"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/guardian/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.RefreshToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token no longer refreshes.
	req = httptest.NewRequest(http.MethodPost, "/api/guardian/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+session.RefreshToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
