package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches complaints with PostgreSQL full-text search. It is the
// fallback whenever Meilisearch is not configured or unhealthy.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

const complaintVector = `to_tsvector('spanish', c.folio || ' ' || c.title || ' ' || c.description)`

// buildSearchSQL matches the expression of the complaints_fts_idx index so
// the planner can use it. A query equal to a folio also matches that folio.
func buildSearchSQL(q Query) (string, string, []any) {
	limit, offset := normalizePage(q)
	args := []any{strings.TrimSpace(q.Text)}

	where := fmt.Sprintf("(%s @@ plainto_tsquery('spanish', $1) OR c.folio = UPPER($1))", complaintVector)
	if q.OwnerID != 0 {
		args = append(args, q.OwnerID)
		where += fmt.Sprintf(" AND c.owner_id = $%d", len(args))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		where += fmt.Sprintf(" AND c.status = $%d", len(args))
	}

	countSQL := "SELECT count(*) FROM complaints c WHERE " + where
	dataSQL := fmt.Sprintf(`
		SELECT c.id, c.folio, c.title,
			ts_headline('spanish', c.description, plainto_tsquery('spanish', $1), 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>'),
			c.status, c.category_id, c.owner_id
		FROM complaints c
		WHERE %s
		ORDER BY ts_rank(%s, plainto_tsquery('spanish', $1)) DESC, c.created_at DESC, c.id DESC
		LIMIT %d OFFSET %d`, where, complaintVector, limit, offset)
	return countSQL, dataSQL, args
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	countSQL, dataSQL, args := buildSearchSQL(q)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Folio, &r.Title, &r.Snippet, &r.Status, &r.CategoryID, &r.OwnerID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every complaint for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ComplaintRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, folio, title, description, status, category_id, owner_id, COALESCE(district, '')
		FROM complaints
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load complaints: %w", err)
	}
	defer rows.Close()

	records := make([]ComplaintRecord, 0)
	for rows.Next() {
		var r ComplaintRecord
		if err := rows.Scan(&r.ID, &r.Folio, &r.Title, &r.Description, &r.Status, &r.CategoryID, &r.OwnerID, &r.District); err != nil {
			return nil, fmt.Errorf("scan complaint record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaint records: %w", err)
	}
	return records, nil
}
