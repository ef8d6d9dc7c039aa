package app

import (
	"context"
	"errors"
	"net/http"

	"denuncias/api/internal/authpw"
	"denuncias/api/internal/util"
)

// authError translates identity failures into the API error envelope.
func (s *Service) authError(op string, err error) error {
	var fieldErrs *util.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		return fieldValidationError(err)
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, authpw.ErrWrongPassword):
		return domainError(http.StatusBadRequest, "WRONG_PASSWORD", "Current password is incorrect", nil)
	case errors.Is(err, authpw.ErrAlreadyRegistered):
		return conflictError("ALREADY_REGISTERED", "Email or national id already registered", nil)
	case errors.Is(err, authpw.ErrWeakPassword):
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]any{"invalid": []string{"password"}})
	case errors.Is(err, authpw.ErrInvalidRole):
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]any{"invalid": []string{"role"}})
	case errors.Is(err, authpw.ErrUserNotFound):
		return notFoundError("User not found")
	default:
		return s.storeError(op, err)
	}
}

func (s *Service) Register(ctx context.Context, req authpw.RegisterRequest) (UserView, error) {
	user, err := s.auth.Register(ctx, req)
	if err != nil {
		return UserView{}, s.authError("register", err)
	}
	return userView(user), nil
}

func (s *Service) Login(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.auth.SignIn(ctx, req)
	if err != nil {
		return Session{}, s.authError("sign in", err)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Me(ctx context.Context, session Session) (UserView, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		if isNotFound(err) {
			return UserView{}, notFoundError("User not found")
		}
		return UserView{}, s.storeError("get user", err)
	}
	return userView(user), nil
}

func (s *Service) UpdateProfile(ctx context.Context, session Session, req authpw.ProfileRequest) (UserView, error) {
	user, err := s.auth.UpdateProfile(ctx, session.UserID, req)
	if err != nil {
		return UserView{}, s.authError("update profile", err)
	}
	return userView(user), nil
}

func (s *Service) ChangePassword(ctx context.Context, session Session, req authpw.ChangePasswordRequest) error {
	if err := s.auth.ChangePassword(ctx, session.UserID, req); err != nil {
		return s.authError("change password", err)
	}
	return nil
}
