package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"denuncias/api/internal/complaint"
	"denuncias/api/internal/rbac"
	"denuncias/api/internal/store"
)

type NotificationKind string

const (
	NotificationNew    NotificationKind = "new"
	NotificationAlert  NotificationKind = "alert"
	NotificationUpdate NotificationKind = "update"
)

const (
	defaultNotificationWindow = 24 * time.Hour
	alertAfterDays            = 3
)

// Notification is derived from complaint state on every read. IDs are stable
// so clients can remember which ones they have seen.
type Notification struct {
	ID          string            `json:"id"`
	Kind        NotificationKind  `json:"kind"`
	ComplaintID int64             `json:"complaintId"`
	Folio       string            `json:"folio"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Status      complaint.Status  `json:"status"`
	Urgency     complaint.Urgency `json:"urgency"`
	At          time.Time         `json:"at"`
}

// ListNotifications reports new, stale and recently updated complaints the
// caller can see. A zero since means the last 24 hours. Alerts are a standing
// condition and ignore since.
func (s *Service) ListNotifications(ctx context.Context, session Session, since time.Time) ([]Notification, error) {
	var (
		items []store.Complaint
		err   error
	)
	if s.can(session, rbac.ActionListAll, 0) {
		items, err = s.store.ListComplaints(ctx, store.ComplaintFilter{})
	} else {
		items, err = s.store.ListComplaintsByOwner(ctx, session.UserID)
	}
	if err != nil {
		return nil, s.storeError("list complaints", err)
	}
	now := s.clock()
	if since.IsZero() {
		since = now.Add(-defaultNotificationWindow)
	}
	return deriveNotifications(items, since, now), nil
}

func deriveNotifications(items []store.Complaint, since, now time.Time) []Notification {
	out := make([]Notification, 0)
	for _, item := range items {
		status := complaint.Status(item.Status)
		days := complaint.DaysElapsed(item.CreatedAt, now)
		base := Notification{
			ComplaintID: item.ID,
			Folio:       item.Folio,
			Title:       item.Title,
			Status:      status,
			Urgency:     complaint.Classify(status, days),
		}

		if days == 0 && !item.CreatedAt.Before(since) {
			n := base
			n.ID = fmt.Sprintf("new-%d", item.ID)
			n.Kind = NotificationNew
			n.Message = fmt.Sprintf("Nueva denuncia %s registrada", item.Folio)
			n.At = item.CreatedAt
			out = append(out, n)
		}
		if status == complaint.StatusReceived && days > alertAfterDays {
			n := base
			n.ID = fmt.Sprintf("alert-%d", item.ID)
			n.Kind = NotificationAlert
			n.Message = fmt.Sprintf("La denuncia %s lleva %d días sin atención", item.Folio, days)
			n.At = item.CreatedAt
			out = append(out, n)
		}
		if !item.UpdatedAt.Equal(item.CreatedAt) &&
			now.Sub(item.UpdatedAt) <= defaultNotificationWindow &&
			!item.UpdatedAt.Before(since) {
			n := base
			n.ID = fmt.Sprintf("update-%d", item.ID)
			n.Kind = NotificationUpdate
			n.Message = fmt.Sprintf("La denuncia %s cambió a %s", item.Folio, status)
			n.At = item.UpdatedAt
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.After(out[j].At)
	})
	return out
}
