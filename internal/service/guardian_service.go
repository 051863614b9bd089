package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	cryptorand "crypto/rand"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type guardianTokenRepository interface {
	CreateToken(ctx context.Context, token *models.GuardianToken) error
	FindToken(ctx context.Context, token string) (*models.GuardianToken, error)
	RevokeToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeStudentTokens(ctx context.Context, studentID string) error
}

type guardianUserRepository interface {
	FindByIndexNumber(ctx context.Context, indexNumber string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateGuardianCodeHash(ctx context.Context, id, codeHash string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// GuardianConfig defines configuration for guardian sessions.
type GuardianConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
}

// GuardianService authenticates guardians. A guardian has no account of
// their own: they sign in with the student's index number plus a
// school-issued access code and get a session scoped to that one student.
type GuardianService struct {
	tokens    guardianTokenRepository
	users     guardianUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    GuardianConfig
}

// NewGuardianService constructs a GuardianService instance.
func NewGuardianService(tokens guardianTokenRepository, users guardianUserRepository, validate *validator.Validate, logger *zap.Logger, config GuardianConfig) *GuardianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GuardianService{tokens: tokens, users: users, validator: validate, logger: logger, config: config}
}

// Login verifies the access code and issues a guardian session. The refresh
// token is returned in the body since guardians store it themselves.
func (s *GuardianService) Login(ctx context.Context, req models.GuardianLoginRequest) (*models.GuardianSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guardian login payload")
	}

	student, err := s.users.FindByIndexNumber(ctx, req.IndexNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidAccessCode, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	if student.Role != models.RoleStudent || !student.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessCode, "")
	}
	if student.GuardianCodeHash == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessCode, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*student.GuardianCodeHash), []byte(req.AccessCode)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAccessCode, "")
	}

	session, err := s.issueSession(ctx, student)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &student.ID,
		Action:     models.AuditActionGuardianLogin,
		Resource:   "guardian",
		ResourceID: &student.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record guardian login audit log", zap.Error(err))
	}

	return session, nil
}

// Refresh rotates a guardian bearer token and issues a fresh access token.
func (s *GuardianService) Refresh(ctx context.Context, refreshToken string) (*models.GuardianSession, error) {
	if refreshToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing guardian refresh token")
	}

	stored, err := s.tokens.FindToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "guardian session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch guardian token")
	}

	if stored.Revoked || time.Now().UTC().After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "guardian session is expired or revoked")
	}

	student, err := s.users.FindByID(ctx, stored.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "linked student no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student account is inactive")
	}

	if err := s.tokens.RevokeToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used guardian token", zap.Error(err))
	}

	return s.issueSession(ctx, student)
}

// Logout revokes the presented guardian bearer token.
func (s *GuardianService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	stored, err := s.tokens.FindToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian token")
	}
	if err := s.tokens.RevokeToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke guardian token")
	}
	return nil
}

// IssueAccessCode generates a new access code for a student's guardian and
// revokes every outstanding guardian session for that student. The plain
// code is returned once and never stored.
func (s *GuardianService) IssueAccessCode(ctx context.Context, studentID string) (string, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return "", appErrors.Clone(appErrors.ErrValidation, "access codes are issued for students only")
	}

	code, err := generateAccessCode()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access code")
	}

	if err := s.users.UpdateGuardianCodeHash(ctx, studentID, string(hash)); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store access code")
	}

	if err := s.tokens.RevokeStudentTokens(ctx, studentID); err != nil {
		s.logger.Warn("failed to revoke guardian tokens after code rotation", zap.Error(err))
	}

	return code, nil
}

func (s *GuardianService) issueSession(ctx context.Context, student *models.User) (*models.GuardianSession, error) {
	accessToken, err := s.generateGuardianAccessToken(student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guardian access token")
	}

	refreshValue, err := generateOpaqueToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guardian refresh token")
	}

	token := &models.GuardianToken{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		Token:     refreshValue,
		ExpiresAt: time.Now().UTC().Add(s.config.RefreshTokenExpiry),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist guardian token")
	}

	return &models.GuardianSession{
		AccessToken:  accessToken,
		RefreshToken: token.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
		User: models.UserInfo{
			StudentID:   student.ID,
			StudentName: student.FullName,
		},
	}, nil
}

func (s *GuardianService) generateGuardianAccessToken(student *models.User) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		StudentID:   student.ID,
		StudentName: student.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   student.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

// generateAccessCode produces an 8-digit numeric code.
func generateAccessCode() (string, error) {
	max := big.NewInt(100000000)
	n, err := cryptorand.Int(cryptorand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}
