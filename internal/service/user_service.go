package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schooldesk/schooldesk-api/internal/models"
	appErrors "github.com/schooldesk/schooldesk-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIndexNumber(ctx context.Context, indexNumber string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, active bool) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserCreateRequest registers a user through the admin screen.
type UserCreateRequest struct {
	Role        models.UserRole `json:"role" validate:"required,oneof=Admin Teacher Student"`
	FullName    string          `json:"full_name" validate:"required,min=3"`
	Email       string          `json:"email" validate:"omitempty,email"`
	IndexNumber string          `json:"index_number" validate:"omitempty,min=3"`
	Password    string          `json:"password" validate:"required,min=6"`
	ClassID     string          `json:"class_id"`
	Phone       string          `json:"phone"`
}

// UserUpdateRequest edits an existing user.
type UserUpdateRequest struct {
	FullName string          `json:"full_name" validate:"required,min=3"`
	Role     models.UserRole `json:"role" validate:"required,oneof=Admin Teacher Student"`
	ClassID  string          `json:"class_id"`
	Phone    string          `json:"phone"`
	Active   *bool           `json:"active"`
}

// UserService provides user management use cases.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users with pagination.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create registers a new user. Students require an index number, everyone
// else an email.
func (s *UserService) Create(ctx context.Context, actorID string, req UserCreateRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if req.Role == models.RoleStudent {
		if req.IndexNumber == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "students require an index number")
		}
		if _, err := s.repo.FindByIndexNumber(ctx, req.IndexNumber); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "index number is already registered")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check index number")
		}
	} else {
		if req.Email == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "an email address is required")
		}
		if _, err := s.repo.FindByEmail(ctx, strings.ToLower(req.Email)); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
	}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		user.Email = &email
	}
	if req.IndexNumber != "" {
		index := req.IndexNumber
		user.IndexNumber = &index
	}
	if req.ClassID != "" {
		classID := req.ClassID
		user.ClassID = &classID
	}
	if req.Phone != "" {
		phone := req.Phone
		user.Phone = &phone
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, actorID, models.AuditActionUserCreate, user.ID, user)
	return user, nil
}

// Update edits a user's profile fields.
func (s *UserService) Update(ctx context.Context, actorID, id string, req UserUpdateRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FullName = req.FullName
	user.Role = req.Role
	user.ClassID = nil
	if req.ClassID != "" {
		classID := req.ClassID
		user.ClassID = &classID
	}
	user.Phone = nil
	if req.Phone != "" {
		phone := req.Phone
		user.Phone = &phone
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit(ctx, actorID, models.AuditActionUserUpdate, user.ID, user)
	return user, nil
}

// SetStatus activates or deactivates an account without touching the rest
// of the profile. Deactivated users fail login but keep their history.
func (s *UserService) SetStatus(ctx context.Context, actorID, id string, active bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Active == active {
		return user, nil
	}

	if err := s.repo.UpdateStatus(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}
	user.Active = active

	s.audit(ctx, actorID, models.AuditActionUserStatus, user.ID, map[string]bool{"active": active})
	return user, nil
}

// Delete deactivates a user. Accounts are never hard-deleted so audit
// history keeps its references.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.audit(ctx, actorID, models.AuditActionUserDelete, id, nil)
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, newValues interface{}) {
	var payload []byte
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			payload = raw
		}
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  payload,
		CreatedAt:  time.Now().UTC(),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}
