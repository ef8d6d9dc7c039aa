package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"denuncias/api/internal/rbac"
	"denuncias/api/internal/store"
)

type UserView struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	NationalID string    `json:"nationalId"`
	Email      string    `json:"email"`
	Role       rbac.Role `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

func userView(u store.User) UserView {
	return UserView{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		NationalID: u.NationalID,
		Email:      u.Email,
		Role:       rbac.Normalize(u.Role),
		CreatedAt:  u.CreatedAt,
	}
}

type UserSummaryView struct {
	UserView
	TotalComplaints    int `json:"totalComplaints"`
	ResolvedComplaints int `json:"resolvedComplaints"`
	PendingComplaints  int `json:"pendingComplaints"`
}

type UserTotalsView struct {
	Total       int `json:"total"`
	Citizens    int `json:"citizens"`
	Authorities int `json:"authorities"`
	NewLast30   int `json:"newLast30Days"`
}

const newUserWindow = 30 * 24 * time.Hour

func (s *Service) ListUsers(ctx context.Context, session Session) ([]UserSummaryView, error) {
	if !s.can(session, rbac.ActionManageUsers, 0) {
		return nil, authorizationError()
	}
	users, err := s.store.ListUsersWithStats(ctx)
	if err != nil {
		return nil, s.storeError("list users", err)
	}
	items := make([]UserSummaryView, 0, len(users))
	for _, user := range users {
		items = append(items, UserSummaryView{
			UserView:           userView(user.User),
			TotalComplaints:    user.TotalComplaints,
			ResolvedComplaints: user.ResolvedComplaints,
			PendingComplaints:  user.PendingComplaints,
		})
	}
	return items, nil
}

func (s *Service) UserStats(ctx context.Context, session Session) (UserTotalsView, error) {
	if !s.can(session, rbac.ActionManageUsers, 0) {
		return UserTotalsView{}, authorizationError()
	}
	totals, err := s.store.UserTotals(ctx, s.clock().Add(-newUserWindow))
	if err != nil {
		return UserTotalsView{}, s.storeError("user totals", err)
	}
	return UserTotalsView{
		Total:       totals.Total,
		Citizens:    totals.Citizens,
		Authorities: totals.Authorities,
		NewLast30:   totals.NewLastDays,
	}, nil
}

// SetUserRole lets an authority promote or demote another user, never
// themselves.
func (s *Service) SetUserRole(ctx context.Context, session Session, userID int64, role string) (UserView, error) {
	if !s.can(session, rbac.ActionManageUsers, 0) {
		return UserView{}, authorizationError()
	}
	if userID == session.UserID {
		return UserView{}, domainError(http.StatusForbidden, "FORBIDDEN", "You cannot change your own role", nil)
	}
	parsed, ok := rbac.Parse(role)
	if !ok {
		return UserView{}, validationError("role must be citizen or authority")
	}
	return s.applyRole(ctx, userID, parsed)
}

// AssignRole is the unauthenticated form used by the admin CLI.
func (s *Service) AssignRole(ctx context.Context, userID int64, role string) (UserView, error) {
	parsed, ok := rbac.Parse(role)
	if !ok {
		return UserView{}, validationError("role must be citizen or authority")
	}
	return s.applyRole(ctx, userID, parsed)
}

func (s *Service) applyRole(ctx context.Context, userID int64, role rbac.Role) (UserView, error) {
	updated, err := s.store.UpdateUserRole(ctx, userID, string(role))
	if err != nil {
		return UserView{}, s.storeError("update user role", err)
	}
	if !updated {
		return UserView{}, notFoundError("User not found")
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return UserView{}, s.storeError("get user", err)
	}
	s.log().Info("user role changed", zap.Int64("user_id", userID), zap.String("role", string(role)))
	return userView(user), nil
}
