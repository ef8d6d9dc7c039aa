package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"denuncias/api/internal/blob"
	"denuncias/api/internal/complaint"
	"denuncias/api/internal/email"
	"denuncias/api/internal/rbac"
	"denuncias/api/internal/search"
	"denuncias/api/internal/store"
	"denuncias/api/internal/util"
)

// ComplaintView is a complaint with its read-time derived fields.
type ComplaintView struct {
	ID           int64             `json:"id"`
	Folio        string            `json:"folio"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	CategoryID   int64             `json:"categoryId"`
	CategoryName string            `json:"categoryName"`
	Status       complaint.Status  `json:"status"`
	Latitude     *float64          `json:"latitude"`
	Longitude    *float64          `json:"longitude"`
	District     *string           `json:"district"`
	Rating       *int              `json:"rating"`
	OwnerID      int64             `json:"ownerId"`
	OwnerName    string            `json:"ownerName,omitempty"`
	ImageURL     *string           `json:"imageUrl"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	DaysElapsed  int               `json:"daysElapsed"`
	Urgency      complaint.Urgency `json:"urgency"`
}

func (s *Service) complaintView(c store.Complaint, now time.Time) ComplaintView {
	status := complaint.Status(c.Status)
	days := complaint.DaysElapsed(c.CreatedAt, now)
	owner := strings.TrimSpace(c.OwnerFirstName + " " + c.OwnerLastName)
	return ComplaintView{
		ID:           c.ID,
		Folio:        c.Folio,
		Title:        c.Title,
		Description:  c.Description,
		CategoryID:   c.CategoryID,
		CategoryName: c.CategoryName,
		Status:       status,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		District:     c.District,
		Rating:       c.Rating,
		OwnerID:      c.OwnerID,
		OwnerName:    owner,
		ImageURL:     complaint.ResolveImageURL(c.ImageURL, s.cfg.PublicOrigin),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		DaysElapsed:  days,
		Urgency:      complaint.Classify(status, days),
	}
}

func (s *Service) complaintViews(items []store.Complaint) []ComplaintView {
	now := s.clock()
	views := make([]ComplaintView, 0, len(items))
	for _, item := range items {
		views = append(views, s.complaintView(item, now))
	}
	return views
}

// loadComplaint fetches a complaint for a caller, enforcing the read rule.
func (s *Service) loadComplaint(ctx context.Context, session Session, id int64, action rbac.Action) (store.Complaint, error) {
	if id <= 0 {
		return store.Complaint{}, notFoundError("Complaint not found")
	}
	item, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return store.Complaint{}, notFoundError("Complaint not found")
		}
		return store.Complaint{}, s.storeError("get complaint", err)
	}
	if !s.can(session, action, item.OwnerID) {
		return store.Complaint{}, authorizationError()
	}
	return item, nil
}

func (s *Service) GetComplaint(ctx context.Context, session Session, id int64) (ComplaintView, error) {
	item, err := s.loadComplaint(ctx, session, id, rbac.ActionReadComplaint)
	if err != nil {
		return ComplaintView{}, err
	}
	return s.complaintView(item, s.clock()), nil
}

func (s *Service) ListMyComplaints(ctx context.Context, session Session) ([]ComplaintView, error) {
	if !s.can(session, rbac.ActionListOwn, 0) {
		return nil, authorizationError()
	}
	items, err := s.store.ListComplaintsByOwner(ctx, session.UserID)
	if err != nil {
		return nil, s.storeError("list own complaints", err)
	}
	return s.complaintViews(items), nil
}

// ComplaintListFilter narrows the authority listing. Zero values mean no filter.
type ComplaintListFilter struct {
	Status     string
	SinceDays  int
	District   string
	CategoryID int64
}

func (s *Service) ListAllComplaints(ctx context.Context, session Session, filter ComplaintListFilter) ([]ComplaintView, error) {
	if !s.can(session, rbac.ActionListAll, 0) {
		return nil, authorizationError()
	}
	storeFilter := store.ComplaintFilter{
		District:   strings.TrimSpace(filter.District),
		CategoryID: filter.CategoryID,
	}
	if strings.TrimSpace(filter.Status) != "" {
		status, err := complaint.ParseStatus(filter.Status)
		if err != nil {
			return nil, validationError("Unknown status filter")
		}
		storeFilter.Status = string(status)
	}
	if filter.SinceDays < 0 {
		return nil, validationError("days must not be negative")
	}
	if filter.SinceDays > 0 {
		after := s.clock().Add(-time.Duration(filter.SinceDays) * 24 * time.Hour)
		storeFilter.CreatedAfter = &after
	}

	items, err := s.store.ListComplaints(ctx, storeFilter)
	if err != nil {
		return nil, s.storeError("list complaints", err)
	}
	return s.complaintViews(items), nil
}

type CreateComplaintInput struct {
	Folio       string   `json:"folio" validate:"required"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	CategoryID  int64    `json:"categoryId" validate:"required,gt=0"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	District    string   `json:"district" validate:"omitempty,max=120"`
	// Image is the raw upload, if any. It never comes from JSON.
	Image []byte `json:"-"`
}

func (in *CreateComplaintInput) normalize() {
	in.Folio = strings.ToUpper(strings.TrimSpace(in.Folio))
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.District = strings.TrimSpace(in.District)
}

type CreateComplaintResult struct {
	Message     string  `json:"message"`
	Folio       string  `json:"folio"`
	ComplaintID int64   `json:"complaintId"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Warning     string  `json:"warning,omitempty"`
}

// CreateComplaint files a new complaint for the session's user. The image is
// validated before anything is written. A failure storing it afterwards does
// not undo the complaint; it comes back as a warning.
func (s *Service) CreateComplaint(ctx context.Context, session Session, input CreateComplaintInput) (CreateComplaintResult, error) {
	ctx, span := s.startSpan(ctx, "CreateComplaint")
	defer span.End()

	if !s.can(session, rbac.ActionCreateComplaint, 0) {
		return CreateComplaintResult{}, authorizationError()
	}
	input.normalize()
	if err := util.ValidateStruct(input); err != nil {
		return CreateComplaintResult{}, fieldValidationError(err)
	}
	if !complaint.ValidFolio(input.Folio) {
		return CreateComplaintResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "folio must look like DEN-YYYY-NNNN", map[string]any{"invalid": []string{"folio"}})
	}

	var image *blob.Image
	if len(input.Image) > 0 {
		validated, err := blob.ValidateImage(input.Image)
		if err != nil {
			return CreateComplaintResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]any{"invalid": []string{"image"}})
		}
		image = &validated
	}

	var district *string
	if input.District != "" {
		district = &input.District
	}
	created, err := s.store.InsertComplaint(ctx, store.Complaint{
		Folio:       input.Folio,
		Title:       input.Title,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		District:    district,
		OwnerID:     session.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateFolio):
			return CreateComplaintResult{}, conflictError("DUPLICATE_FOLIO", "Folio already exists", map[string]any{"folio": input.Folio})
		case errors.Is(err, store.ErrUnknownCategory):
			return CreateComplaintResult{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Unknown category", map[string]any{"invalid": []string{"categoryId"}})
		default:
			span.SetStatus(codes.Error, err.Error())
			return CreateComplaintResult{}, s.storeError("insert complaint", err)
		}
	}
	span.SetAttributes(attribute.Int64("complaint.id", created.ID))

	result := CreateComplaintResult{
		Message:     "Denuncia registrada",
		Folio:       created.Folio,
		ComplaintID: created.ID,
	}
	if image != nil {
		url, err := s.attachImage(ctx, created.ID, *image)
		if err != nil {
			s.log().Warn("complaint image not stored",
				zap.Int64("complaint_id", created.ID),
				zap.String("folio", created.Folio),
				zap.Error(err),
			)
			result.Warning = "La denuncia fue registrada pero la imagen no pudo guardarse"
		} else {
			result.ImageURL = complaint.ResolveImageURL(&url, s.cfg.PublicOrigin)
		}
	}

	s.indexComplaint(created)
	return result, nil
}

func (s *Service) attachImage(ctx context.Context, complaintID int64, image blob.Image) (string, error) {
	if s.blobs == nil {
		return "", errors.New("no image store configured")
	}
	url, err := s.blobs.Put(ctx, blob.ObjectName(image), image.ContentType, image.Data)
	if err != nil {
		return "", fmt.Errorf("put image: %w", err)
	}
	if err := s.store.InsertImage(ctx, complaintID, url); err != nil {
		return "", fmt.Errorf("insert image row: %w", err)
	}
	return url, nil
}

type TransitionInput struct {
	Status string `json:"status"`
	Rating *int   `json:"rating"`
}

// TransitionComplaint moves a complaint along the lifecycle. The update only
// applies while the row still holds the status that was checked, so a
// concurrent transition shows up as a conflict rather than being overwritten.
func (s *Service) TransitionComplaint(ctx context.Context, session Session, id int64, input TransitionInput) (ComplaintView, error) {
	ctx, span := s.startSpan(ctx, "TransitionComplaint")
	defer span.End()
	span.SetAttributes(attribute.Int64("complaint.id", id))

	if !s.can(session, rbac.ActionTransition, 0) {
		return ComplaintView{}, authorizationError()
	}
	if strings.TrimSpace(input.Status) == "" {
		return ComplaintView{}, validationError("status is required", "status")
	}
	target, err := complaint.ParseStatus(input.Status)
	if err != nil {
		return ComplaintView{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", map[string]any{
			"status":  input.Status,
			"allowed": complaint.Statuses,
		})
	}
	if input.Rating != nil {
		if err := complaint.ValidateRating(*input.Rating); err != nil {
			return ComplaintView{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]any{"invalid": []string{"rating"}})
		}
	}

	current, err := s.loadComplaint(ctx, session, id, rbac.ActionTransition)
	if err != nil {
		return ComplaintView{}, err
	}
	from := complaint.Status(current.Status)
	if err := complaint.CheckTransition(from, target); err != nil {
		return ComplaintView{}, invalidTransitionError(from, target)
	}

	updated, err := s.store.UpdateComplaintStatus(ctx, id, string(from), string(target), input.Rating)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ComplaintView{}, s.storeError("update complaint status", err)
	}
	if !updated {
		latest, err := s.store.GetComplaint(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ComplaintView{}, notFoundError("Complaint not found")
			}
			return ComplaintView{}, s.storeError("get complaint", err)
		}
		return ComplaintView{}, invalidTransitionError(complaint.Status(latest.Status), target)
	}

	after, err := s.store.GetComplaint(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ComplaintView{}, notFoundError("Complaint not found")
		}
		return ComplaintView{}, s.storeError("get complaint", err)
	}
	s.indexComplaint(after)
	s.notifyStatusChanged(ctx, after, from)
	return s.complaintView(after, s.clock()), nil
}

func invalidTransitionError(from, to complaint.Status) *DomainError {
	return conflictError("INVALID_TRANSITION", fmt.Sprintf("Cannot move complaint from %s to %s", from, to), map[string]any{
		"from":    from,
		"to":      to,
		"allowed": complaint.AllowedTransitions(from),
	})
}

func (s *Service) indexComplaint(c store.Complaint) {
	if s.search == nil {
		return
	}
	record := search.ComplaintRecord{
		ID:          c.ID,
		Folio:       c.Folio,
		Title:       c.Title,
		Description: c.Description,
		Status:      c.Status,
		CategoryID:  c.CategoryID,
		OwnerID:     c.OwnerID,
	}
	if c.District != nil {
		record.District = *c.District
	}
	s.search.IndexComplaint(record)
}

const notifyTimeout = 30 * time.Second

// notifyStatusChanged emails the owner in the background. Failures are only
// logged.
func (s *Service) notifyStatusChanged(ctx context.Context, c store.Complaint, from complaint.Status) {
	if s.mailer == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		owner, err := s.store.GetUserByID(ctx, c.OwnerID)
		if err != nil {
			s.log().Warn("status email: owner lookup", zap.Int64("complaint_id", c.ID), zap.Error(err))
			return
		}
		err = s.mailer.SendStatusChanged(ctx, email.StatusChange{
			To:       owner.Email,
			UserName: owner.DisplayName(),
			Folio:    c.Folio,
			Title:    c.Title,
			From:     string(from),
			Status:   c.Status,
			Rating:   c.Rating,
		})
		if err != nil && !errors.Is(err, email.ErrNotConfigured) {
			s.log().Warn("status email not sent", zap.Int64("complaint_id", c.ID), zap.Error(err))
		}
	}()
}

func (s *Service) SearchComplaints(ctx context.Context, session Session, text, status string, limit, offset int) (search.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return search.Response{}, validationError("q is required", "q")
	}
	query := search.Query{Text: text, Limit: limit, Offset: offset}
	if strings.TrimSpace(status) != "" {
		parsed, err := complaint.ParseStatus(status)
		if err != nil {
			return search.Response{}, validationError("Unknown status filter")
		}
		query.Status = string(parsed)
	}
	if !s.can(session, rbac.ActionListAll, 0) {
		query.OwnerID = session.UserID
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(ctx, query), nil
}
