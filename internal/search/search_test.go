package search

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildSearchSQLScopesByOwner(t *testing.T) {
	countSQL, dataSQL, args := buildSearchSQL(Query{Text: " bache ", OwnerID: 7, Status: "received", Limit: 5, Offset: 10})

	require.Len(t, args, 3)
	assert.Equal(t, "bache", args[0])
	assert.Equal(t, int64(7), args[1])
	assert.Equal(t, "received", args[2])
	assert.Contains(t, countSQL, "c.owner_id = $2")
	assert.Contains(t, countSQL, "c.status = $3")
	assert.Contains(t, dataSQL, "LIMIT 5 OFFSET 10")
	assert.Contains(t, dataSQL, "'spanish'")
}

func TestBuildSearchSQLWithoutOwner(t *testing.T) {
	countSQL, dataSQL, args := buildSearchSQL(Query{Text: "luminaria"})

	assert.Len(t, args, 1)
	assert.NotContains(t, countSQL, "owner_id")
	assert.True(t, strings.Contains(dataSQL, "LIMIT 20 OFFSET 0"))
}

func TestNormalizePage(t *testing.T) {
	limit, offset := normalizePage(Query{Limit: 1000, Offset: -3})
	assert.Equal(t, defaultLimit, limit)
	assert.Equal(t, 0, offset)
}

func TestMeiliFilters(t *testing.T) {
	assert.Empty(t, meiliFilters(Query{}))
	assert.Equal(t, []string{"ownerId = 3", `status = "resolved"`}, meiliFilters(Query{OwnerID: 3, Status: "resolved"}))
}

func TestHitToResultPrefersFormatted(t *testing.T) {
	hit := meili.Hit{
		"id":          json.RawMessage(`12`),
		"folio":       json.RawMessage(`"DEN-2026-0012"`),
		"title":       json.RawMessage(`"Bache"`),
		"description": json.RawMessage(`"Bache en avenida"`),
		"status":      json.RawMessage(`"received"`),
		"categoryId":  json.RawMessage(`3`),
		"ownerId":     json.RawMessage(`9`),
		"_formatted":  json.RawMessage(`{"id":"12","title":"<mark>Bache</mark>","description":"<mark>Bache</mark> en avenida"}`),
	}

	result := hitToResult(hit)
	assert.Equal(t, int64(12), result.ID)
	assert.Equal(t, "DEN-2026-0012", result.Folio)
	assert.Equal(t, "<mark>Bache</mark>", result.Title)
	assert.Equal(t, "<mark>Bache</mark> en avenida", result.Snippet)
	assert.Equal(t, int64(3), result.CategoryID)
	assert.Equal(t, int64(9), result.OwnerID)
}

func TestServiceWithoutBackendsReturnsEmpty(t *testing.T) {
	svc := NewService(nil, nil, zap.NewNop())
	resp := svc.Search(context.Background(), Query{Text: "bache"})
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, "bache", resp.Query)

	svc.IndexComplaint(ComplaintRecord{ID: 1})
	_, err := svc.ReindexAllFromPG(context.Background())
	assert.Error(t, err)
}
