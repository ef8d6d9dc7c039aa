package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// complaintSelect joins category, owner and the first (lowest id) image so
// every read returns category id and name together.
const complaintSelect = `
	SELECT c.id, c.folio, c.title, c.description, c.category_id, cat.name, c.status,
		c.latitude, c.longitude, c.district, c.rating, c.owner_id, u.first_name, u.last_name,
		(SELECT i.url FROM complaint_images i WHERE i.complaint_id = c.id ORDER BY i.id ASC LIMIT 1),
		c.created_at, c.updated_at
	FROM complaints c
	JOIN categories cat ON cat.id = c.category_id
	JOIN users u ON u.id = c.owner_id
`

func scanComplaint(row interface{ Scan(...any) error }) (Complaint, error) {
	var (
		item      Complaint
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
		district  sql.NullString
		rating    sql.NullInt32
		imageURL  sql.NullString
	)
	err := row.Scan(
		&item.ID, &item.Folio, &item.Title, &item.Description, &item.CategoryID, &item.CategoryName, &item.Status,
		&latitude, &longitude, &district, &rating, &item.OwnerID, &item.OwnerFirstName, &item.OwnerLastName,
		&imageURL, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return Complaint{}, err
	}
	if latitude.Valid && longitude.Valid {
		lat, lng := latitude.Float64, longitude.Float64
		item.Latitude, item.Longitude = &lat, &lng
	}
	if district.Valid {
		item.District = &district.String
	}
	if rating.Valid {
		value := int(rating.Int32)
		item.Rating = &value
	}
	if imageURL.Valid {
		item.ImageURL = &imageURL.String
	}
	return item, nil
}

func (s *PostgresStore) InsertComplaint(ctx context.Context, c Complaint) (Complaint, error) {
	const query = `
		INSERT INTO complaints (folio, title, description, category_id, latitude, longitude, district, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, status, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		c.Folio, c.Title, c.Description, c.CategoryID, nullableFloat(c.Latitude), nullableFloat(c.Longitude), nullableString(c.District), c.OwnerID,
	).Scan(&c.ID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		code, constraint := pgErrorCode(err)
		switch {
		case code == pgUniqueViolation && constraint == "complaints_folio_key":
			return Complaint{}, ErrDuplicateFolio
		case code == pgForeignKeyViolation && strings.Contains(constraint, "category"):
			return Complaint{}, ErrUnknownCategory
		}
		return Complaint{}, fmt.Errorf("insert complaint: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) InsertImage(ctx context.Context, complaintID int64, url string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO complaint_images (complaint_id, url) VALUES ($1, $2)`, complaintID, url); err != nil {
		return fmt.Errorf("insert complaint image: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComplaint(ctx context.Context, id int64) (Complaint, error) {
	item, err := scanComplaint(s.db.QueryRowContext(ctx, complaintSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Complaint{}, err
		}
		return Complaint{}, fmt.Errorf("get complaint: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListComplaintsByOwner(ctx context.Context, ownerID int64) ([]Complaint, error) {
	return s.ListComplaints(ctx, ComplaintFilter{OwnerID: ownerID})
}

// ListComplaints returns complaints newest first.
func (s *PostgresStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]Complaint, error) {
	where, args := complaintFilterClause(filter)
	rows, err := s.db.QueryContext(ctx, complaintSelect+where+` ORDER BY c.created_at DESC, c.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	items := make([]Complaint, 0)
	for rows.Next() {
		item, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return items, nil
}

func complaintFilterClause(filter ComplaintFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if filter.OwnerID != 0 {
		add("c.owner_id = $%d", filter.OwnerID)
	}
	if filter.Status != "" {
		add("c.status = $%d", filter.Status)
	}
	if filter.CreatedAfter != nil {
		add("c.created_at >= $%d", *filter.CreatedAfter)
	}
	if filter.District != "" {
		add("lower(btrim(c.district)) = lower(btrim($%d))", filter.District)
	}
	if filter.CategoryID != 0 {
		add("c.category_id = $%d", filter.CategoryID)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// UpdateComplaintStatus moves a complaint from one status to another. It only
// matches while the row still holds the expected status, so a concurrent
// writer that got there first leaves this call with false.
func (s *PostgresStore) UpdateComplaintStatus(ctx context.Context, id int64, from, to string, rating *int) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE complaints
		SET status=$3, rating=COALESCE($4, rating), updated_at=GREATEST(NOW(), created_at)
		WHERE id=$1 AND status=$2
	`, id, from, to, nullableInt(rating))
	if err != nil {
		return false, fmt.Errorf("update complaint status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update complaint status rows: %w", err)
	}
	return affected > 0, nil
}

// CountComplaintsByStatus counts complaints per status in one pass. An
// ownerID of 0 counts every complaint.
func (s *PostgresStore) CountComplaintsByStatus(ctx context.Context, ownerID int64) (StatusCounts, error) {
	const query = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'received'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM complaints
		WHERE ($1::BIGINT = 0 OR owner_id = $1)
	`
	var counts StatusCounts
	if err := s.db.QueryRowContext(ctx, query, ownerID).Scan(
		&counts.Total, &counts.Received, &counts.InProgress, &counts.Resolved, &counts.Rejected,
	); err != nil {
		return StatusCounts{}, fmt.Errorf("count complaints: %w", err)
	}
	return counts, nil
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableString(value *string) any {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	return strings.TrimSpace(*value)
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
