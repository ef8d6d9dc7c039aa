package store

import (
	"context"
	"fmt"
)

// InsertComment appends a comment and returns it with id and timestamp set.
// IsAuthority is stored as given: it snapshots the author's role.
func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) (Comment, error) {
	const query = `
		INSERT INTO complaint_comments (complaint_id, author_id, body, is_authority)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := s.db.QueryRowContext(ctx, query, comment.ComplaintID, comment.AuthorID, comment.Body, comment.IsAuthority).
		Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, complaintID int64) ([]Comment, error) {
	const query = `
		SELECT cc.id, cc.complaint_id, cc.author_id, u.first_name, u.last_name, cc.body, cc.is_authority, cc.created_at
		FROM complaint_comments cc
		JOIN users u ON u.id = cc.author_id
		WHERE cc.complaint_id = $1
		ORDER BY cc.created_at ASC, cc.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.ComplaintID, &item.AuthorID, &item.AuthorFirst, &item.AuthorLast, &item.Body, &item.IsAuthority, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}
