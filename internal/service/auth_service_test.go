package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail map[string]*models.User
	usersByIndex map[string]*models.User
	usersByID    map[string]*models.User

	refreshTokens map[string]*models.RefreshToken
	auditLogs     []*models.AuditLog
	created       []*models.User
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		usersByEmail:  map[string]*models.User{},
		usersByIndex:  map[string]*models.User{},
		usersByID:     map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) addUser(u *models.User) {
	m.usersByID[u.ID] = u
	if u.Email != nil {
		m.usersByEmail[*u.Email] = u
	}
	if u.IndexNumber != nil {
		m.usersByIndex[*u.IndexNumber] = u
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) FindByIndexNumber(ctx context.Context, indexNumber string) (*models.User, error) {
	u, ok := m.usersByIndex[indexNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.created = append(m.created, user)
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.usersByID[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, rt := range m.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "schooldesk",
	})
}

func adminFixture(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	email := "admin@example.com"
	return &models.User{ID: "u1", Email: &email, PasswordHash: string(hash), FullName: "Admin", Role: models.RoleAdmin, Active: true}
}

func TestLoginWithEmail(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(adminFixture(t))
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "admin@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleAdmin, res.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.False(t, claims.IsGuardian())
}

func TestLoginWithIndexNumber(t *testing.T) {
	repo := newMockAuthRepo()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	index := "STU-001"
	repo.addUser(&models.User{ID: "s1", IndexNumber: &index, PasswordHash: string(hash), FullName: "Student", Role: models.RoleStudent, Active: true})
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "STU-001", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Equal(t, "STU-001", res.User.IndexNumber)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(adminFixture(t))
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "admin@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	user := adminFixture(t)
	user.Active = false
	repo.addUser(user)
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "admin@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(adminFixture(t))
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "admin@example.com", Password: "password"})
	require.NoError(t, err)

	res, err := svc.Refresh(context.Background(), login.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	// the used token is revoked, replaying it fails
	_, err = svc.Refresh(context.Background(), login.RefreshToken, "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(adminFixture(t))
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "admin@example.com", Password: "password"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), "unknown"))
}

func TestSignupRoutesIdentifier(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	student, err := svc.Signup(context.Background(), models.SignupRequest{
		Role: models.RoleStudent, FullName: "New Student", Identifier: "STU-100",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, student.IndexNumber)
	assert.Equal(t, "STU-100", *student.IndexNumber)
	assert.Nil(t, student.Email)

	_, err = svc.Signup(context.Background(), models.SignupRequest{
		Role: models.RoleStudent, FullName: "Duplicate", Identifier: "STU-100",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
