package app

import (
	"context"
	"strings"
	"time"

	"denuncias/api/internal/rbac"
	"denuncias/api/internal/store"
)

type CommentView struct {
	ID          int64     `json:"id"`
	ComplaintID int64     `json:"complaintId"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
	Author      string    `json:"author"`
	AuthorID    int64     `json:"authorId"`
	IsAuthority bool      `json:"isAuthority"`
}

const maxCommentLength = 2000

func commentView(c store.Comment) CommentView {
	return CommentView{
		ID:          c.ID,
		ComplaintID: c.ComplaintID,
		Text:        c.Body,
		CreatedAt:   c.CreatedAt,
		Author:      store.User{FirstName: c.AuthorFirst, LastName: c.AuthorLast}.DisplayName(),
		AuthorID:    c.AuthorID,
		IsAuthority: c.IsAuthority,
	}
}

func (s *Service) ListComments(ctx context.Context, session Session, complaintID int64) ([]CommentView, error) {
	if _, err := s.loadComplaint(ctx, session, complaintID, rbac.ActionComment); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, complaintID)
	if err != nil {
		return nil, s.storeError("list comments", err)
	}
	items := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentView(comment))
	}
	return items, nil
}

// AddComment appends to a complaint's timeline. The author's role is
// snapshotted on the row.
func (s *Service) AddComment(ctx context.Context, session Session, complaintID int64, text string) (CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CommentView{}, validationError("text is required", "text")
	}
	if len([]rune(text)) > maxCommentLength {
		return CommentView{}, validationError("text is too long")
	}
	if _, err := s.loadComplaint(ctx, session, complaintID, rbac.ActionComment); err != nil {
		return CommentView{}, err
	}

	created, err := s.store.InsertComment(ctx, store.Comment{
		ComplaintID: complaintID,
		AuthorID:    session.UserID,
		Body:        text,
		IsAuthority: session.Role == rbac.RoleAuthority,
	})
	if err != nil {
		return CommentView{}, s.storeError("insert comment", err)
	}
	view := commentView(created)
	view.Author = session.UserName
	return view, nil
}
