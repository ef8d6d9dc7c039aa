// Package authpw provides email/password accounts: registration, sign-in,
// profile edits and password changes.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"denuncias/api/internal/rbac"
	"denuncias/api/internal/store"
	"denuncias/api/internal/util"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrAlreadyRegistered  = errors.New("email or national id already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidRole        = errors.New("role must be citizen or authority")
)

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (store.User, error)
	UpdateUserProfile(ctx context.Context, userID int64, firstName, lastName, email string) (bool, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

type Service struct {
	store UserStore
	cost  int
}

func NewService(store UserStore) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

type RegisterRequest struct {
	FirstName  string `json:"firstName" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	NationalID string `json:"nationalId" validate:"required,max=20"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"required"`
}

func (r *RegisterRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.TrimSpace(r.Role)
}

// Register creates an account. Field problems come back as
// *util.FieldErrors, a taken email or national id as ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	req.normalize()
	if err := util.ValidateStruct(req); err != nil {
		return store.User{}, err
	}
	if len(req.Password) < MinPasswordLength {
		return store.User{}, ErrWeakPassword
	}
	role, ok := rbac.Parse(req.Role)
	if !ok {
		return store.User{}, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, store.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		NationalID:   req.NationalID,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         string(role),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return store.User{}, ErrAlreadyRegistered
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignIn checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := util.ValidateStruct(req); err != nil {
		return store.User{}, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.User{}, ErrInvalidCredentials
		}
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type ProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req ProfileRequest) (store.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := util.ValidateStruct(req); err != nil {
		return store.User{}, err
	}

	updated, err := s.store.UpdateUserProfile(ctx, userID, req.FirstName, req.LastName, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return store.User{}, ErrAlreadyRegistered
		}
		return store.User{}, fmt.Errorf("update profile: %w", err)
	}
	if !updated {
		return store.User{}, ErrUserNotFound
	}
	return s.store.GetUserByID(ctx, userID)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if err := util.ValidateStruct(req); err != nil {
		return err
	}
	if len(req.NewPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
