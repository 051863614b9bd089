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

type mockGuardianTokens struct {
	tokens map[string]*models.GuardianToken
}

func newMockGuardianTokens() *mockGuardianTokens {
	return &mockGuardianTokens{tokens: map[string]*models.GuardianToken{}}
}

func (m *mockGuardianTokens) CreateToken(ctx context.Context, token *models.GuardianToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockGuardianTokens) FindToken(ctx context.Context, token string) (*models.GuardianToken, error) {
	gt, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return gt, nil
}

func (m *mockGuardianTokens) RevokeToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, gt := range m.tokens {
		if gt.ID == id {
			gt.Revoked = true
			gt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockGuardianTokens) RevokeStudentTokens(ctx context.Context, studentID string) error {
	for _, gt := range m.tokens {
		if gt.StudentID == studentID {
			gt.Revoked = true
		}
	}
	return nil
}

type mockGuardianUsers struct {
	byIndex map[string]*models.User
	byID    map[string]*models.User
	codes   map[string]string
	audits  []*models.AuditLog
}

func newMockGuardianUsers() *mockGuardianUsers {
	return &mockGuardianUsers{byIndex: map[string]*models.User{}, byID: map[string]*models.User{}, codes: map[string]string{}}
}

func (m *mockGuardianUsers) FindByIndexNumber(ctx context.Context, indexNumber string) (*models.User, error) {
	u, ok := m.byIndex[indexNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockGuardianUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockGuardianUsers) UpdateGuardianCodeHash(ctx context.Context, id, codeHash string) error {
	m.codes[id] = codeHash
	if u, ok := m.byID[id]; ok {
		u.GuardianCodeHash = &codeHash
	}
	return nil
}

func (m *mockGuardianUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func guardianFixture(t *testing.T) (*mockGuardianTokens, *mockGuardianUsers, *GuardianService) {
	t.Helper()
	tokens := newMockGuardianTokens()
	users := newMockGuardianUsers()

	hash, err := bcrypt.GenerateFromPassword([]byte("12345678"), bcrypt.MinCost)
	require.NoError(t, err)
	codeHash := string(hash)
	index := "STU-001"
	student := &models.User{ID: "s1", IndexNumber: &index, FullName: "Student One", Role: models.RoleStudent, Active: true, GuardianCodeHash: &codeHash}
	users.byIndex["STU-001"] = student
	users.byID["s1"] = student

	svc := NewGuardianService(tokens, users, validator.New(), zap.NewNop(), GuardianConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 30 * 24 * time.Hour,
		Issuer:             "schooldesk",
	})
	return tokens, users, svc
}

func TestGuardianLoginSuccess(t *testing.T) {
	_, _, svc := guardianFixture(t)

	session, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: "12345678"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "s1", session.User.StudentID)
	assert.True(t, session.User.IsGuardian())
}

func TestGuardianLoginWrongCode(t *testing.T) {
	_, _, svc := guardianFixture(t)

	_, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: "00000000"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidAccessCode.Code, appErrors.FromError(err).Code)
}

func TestGuardianLoginUnknownStudentSameError(t *testing.T) {
	_, _, svc := guardianFixture(t)

	_, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "NOPE", AccessCode: "12345678"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidAccessCode.Code, appErrors.FromError(err).Code)
}

func TestGuardianRefreshRotates(t *testing.T) {
	_, _, svc := guardianFixture(t)

	session, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: "12345678"})
	require.NoError(t, err)

	next, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestIssueAccessCodeRevokesSessions(t *testing.T) {
	tokens, users, svc := guardianFixture(t)

	session, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: "12345678"})
	require.NoError(t, err)

	code, err := svc.IssueAccessCode(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.NotEmpty(t, users.codes["s1"])

	for _, gt := range tokens.tokens {
		assert.True(t, gt.Revoked)
	}

	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.Error(t, err)

	next, err := svc.Login(context.Background(), models.GuardianLoginRequest{IndexNumber: "STU-001", AccessCode: code})
	require.NoError(t, err)
	assert.Equal(t, "s1", next.User.StudentID)
}
