package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"denuncias/api/internal/auth"
	"denuncias/api/internal/authpw"
	"denuncias/api/internal/blob"
	"denuncias/api/internal/config"
	"denuncias/api/internal/email"
	"denuncias/api/internal/export"
	"denuncias/api/internal/rbac"
	"denuncias/api/internal/report"
	"denuncias/api/internal/search"
	"denuncias/api/internal/store"
	"denuncias/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	UserName     string
	Email        string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	authpw.UserStore
	UpdateUserRole(context.Context, int64, string) (bool, error)
	ListUsersWithStats(context.Context) ([]store.UserSummary, error)
	UserTotals(context.Context, time.Time) (store.UserTotals, error)
	ListCategories(context.Context) ([]store.Category, error)
	InsertComplaint(context.Context, store.Complaint) (store.Complaint, error)
	InsertImage(context.Context, int64, string) error
	GetComplaint(context.Context, int64) (store.Complaint, error)
	ListComplaintsByOwner(context.Context, int64) ([]store.Complaint, error)
	ListComplaints(context.Context, store.ComplaintFilter) ([]store.Complaint, error)
	UpdateComplaintStatus(context.Context, int64, string, string, *int) (bool, error)
	CountComplaintsByStatus(context.Context, int64) (store.StatusCounts, error)
	InsertComment(context.Context, store.Comment) (store.Comment, error)
	ListComments(context.Context, int64) ([]store.Comment, error)
	Ping(ctx context.Context) error
}

// sessionStore keeps refresh sessions and revoked access tokens. Both the
// Redis store and the Postgres store implement it.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, int64, time.Time) error
	LookupRefreshSession(context.Context, string) (int64, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

type searchIndex interface {
	Search(context.Context, search.Query) search.Response
	IndexComplaint(search.ComplaintRecord)
}

type mailer interface {
	SendStatusChanged(context.Context, email.StatusChange) error
}

type reportExporter interface {
	Export(context.Context, report.Report, export.Format) (*export.Result, error)
}

// Dependencies are the collaborators wired by main. Sessions defaults to the
// Postgres store when nil.
type Dependencies struct {
	Store    *store.PostgresStore
	Sessions sessionStore
	Blobs    blob.Store
	Search   *search.Service
	Mailer   *email.Service
	Exporter *export.Service
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	blobs    blob.Store
	search   searchIndex
	mailer   mailer
	exporter reportExporter
	auth     *authpw.Service
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func New(cfg config.Config, deps Dependencies, logger *zap.Logger) *Service {
	svc := &Service{
		cfg:      cfg,
		store:    deps.Store,
		sessions: deps.Sessions,
		blobs:    deps.Blobs,
		auth:     authpw.NewService(deps.Store),
		logger:   logger.Named("app"),
		tracer:   otel.Tracer("denuncias/app"),
		now:      time.Now,
	}
	if svc.sessions == nil {
		svc.sessions = deps.Store
	}
	// Leave optional collaborators as untyped nils so the nil checks hold.
	if deps.Search != nil {
		svc.search = deps.Search
	}
	if deps.Mailer != nil {
		svc.mailer = deps.Mailer
	}
	if deps.Exporter != nil {
		svc.exporter = deps.Exporter
	}
	return svc
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = otel.Tracer("denuncias/app")
	}
	return tracer.Start(ctx, name)
}

// storeError logs an unexpected persistence failure and hides it behind a
// 503 for the caller.
func (s *Service) storeError(op string, err error) error {
	s.log().Error("store failure", zap.String("op", op), zap.Error(err))
	return dependencyError("Data store unavailable", err)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.clock()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")
	role := rbac.Normalize(user.Role)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		UserID: user.ID,
		Role:   string(role),
		JTI:    jti,
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, s.storeError("save refresh session", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName(),
		Email:        user.Email,
		Role:         role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken validates a bearer token. The role comes from the user
// row, so a role change applies to tokens already issued.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName(),
		Email:     user.Email,
		Role:      rbac.Normalize(user.Role),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, authenticationError()
	}
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		if isNotFound(err) {
			return Session{}, authenticationError()
		}
		return Session{}, s.storeError("lookup refresh session", err)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, s.storeError("revoke refresh session", err)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return Session{}, authenticationError()
		}
		return Session{}, s.storeError("get user", err)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			s.log().Warn("revoke access token", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.log().Warn("revoke refresh session", zap.Error(err))
		}
	}
	return nil
}

// SystemSession acts as an authority with no user behind it. The admin CLI
// uses it for reports.
func SystemSession() Session {
	return Session{UserName: "system", Role: rbac.RoleAuthority}
}

func (s *Service) can(session Session, action rbac.Action, ownerID int64) bool {
	return bool(rbac.Can(session.Role, action, ownerID, session.UserID))
}

func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, s.storeError("list categories", err)
	}
	items := make([]CategoryView, 0, len(categories))
	for _, category := range categories {
		items = append(items, CategoryView{ID: category.ID, Name: category.Name})
	}
	return items, nil
}

type CategoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
