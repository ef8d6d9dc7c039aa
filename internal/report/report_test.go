package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"denuncias/api/internal/complaint"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) time.Time {
	return now.Add(-time.Duration(d * float64(24*time.Hour)))
}

func findGroup(t *testing.T, groups []Group, key string) Group {
	t.Helper()
	for _, g := range groups {
		if g.Key == key {
			return g
		}
	}
	t.Fatalf("group %q not found in %+v", key, groups)
	return Group{}
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil, Filter{}, now)

	assert.Equal(t, Totals{}, r.Totals)
	require.Len(t, r.ByStatus, 4)
	require.Len(t, r.ByDateRange, 4)
	for _, g := range append(r.ByStatus, r.ByDateRange...) {
		assert.Zero(t, g.Count)
		assert.Zero(t, g.AvgResponseDays, g.Key)
	}
	assert.Empty(t, r.ByCategory)
	assert.Empty(t, r.ByDistrict)
	assert.NotNil(t, r.Rows)
}

func TestAggregateUnspecifiedBuckets(t *testing.T) {
	rows := []Row{
		{ID: 1, Status: complaint.StatusReceived, CategoryID: 1, CategoryName: "Baches", District: "Centro", CreatedAt: daysAgo(1)},
		{ID: 2, Status: complaint.StatusReceived, CategoryID: 1, CategoryName: "Baches", District: "", CreatedAt: daysAgo(2)},
		{ID: 3, Status: complaint.StatusResolved, CategoryID: 0, District: "  ", CreatedAt: daysAgo(3)},
	}
	r := Aggregate(rows, Filter{}, now)

	assert.Equal(t, 3, r.Totals.Total)
	assert.Equal(t, 2, r.Totals.Pendientes)
	assert.Equal(t, 1, r.Totals.Resueltas)
	assert.Equal(t, 2, findGroup(t, r.ByDistrict, Unspecified).Count)
	assert.Equal(t, 1, findGroup(t, r.ByDistrict, "Centro").Count)
	assert.Equal(t, 1, findGroup(t, r.ByCategory, Unspecified).Count)
	baches := findGroup(t, r.ByCategory, "1")
	assert.Equal(t, "Baches", baches.Label)
	assert.Equal(t, 2, baches.Count)
}

func TestAggregateAverageIsCeiled(t *testing.T) {
	rows := []Row{
		{ID: 1, Status: complaint.StatusReceived, CategoryID: 1, CategoryName: "A", CreatedAt: daysAgo(1)},
		{ID: 2, Status: complaint.StatusReceived, CategoryID: 1, CategoryName: "A", CreatedAt: daysAgo(2)},
		{ID: 3, Status: complaint.StatusInProgress, CategoryID: 2, CategoryName: "B", CreatedAt: daysAgo(4)},
	}
	r := Aggregate(rows, Filter{}, now)

	// mean of 1 and 2 days is 1.5, ceiled to 2
	assert.Equal(t, 2, findGroup(t, r.ByStatus, string(complaint.StatusReceived)).AvgResponseDays)
	assert.Equal(t, 4, findGroup(t, r.ByStatus, string(complaint.StatusInProgress)).AvgResponseDays)
	assert.Equal(t, 0, findGroup(t, r.ByStatus, string(complaint.StatusRejected)).AvgResponseDays)
}

func TestDateRangeBuckets(t *testing.T) {
	tests := []struct {
		age  float64
		want string
	}{
		{0, RangeToday},
		{0.9, RangeToday},
		{1, RangeLast7Days},
		{7.5, RangeLast7Days},
		{8, RangeLast30Days},
		{30.9, RangeLast30Days},
		{31, RangeOlder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DateRange(daysAgo(tt.age), now), "age %v", tt.age)
	}
}

func TestAggregateFilter(t *testing.T) {
	rows := []Row{
		{ID: 1, Status: complaint.StatusReceived, CategoryID: 1, CategoryName: "A", District: "Centro", CreatedAt: daysAgo(1)},
		{ID: 2, Status: complaint.StatusResolved, CategoryID: 1, CategoryName: "A", District: "Centro", CreatedAt: daysAgo(10)},
		{ID: 3, Status: complaint.StatusReceived, CategoryID: 2, CategoryName: "B", District: "Norte", CreatedAt: daysAgo(2)},
	}

	r := Aggregate(rows, Filter{SinceDays: 7}, now)
	assert.Equal(t, 2, r.Totals.Total)

	r = Aggregate(rows, Filter{District: "centro"}, now)
	assert.Equal(t, 2, r.Totals.Total)

	r = Aggregate(rows, Filter{Status: complaint.StatusReceived, CategoryID: 2}, now)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, int64(3), r.Rows[0].ID)
}

func TestAggregateRowsNewestFirst(t *testing.T) {
	rows := []Row{
		{ID: 1, Status: complaint.StatusReceived, CreatedAt: daysAgo(5)},
		{ID: 2, Status: complaint.StatusReceived, CreatedAt: daysAgo(1)},
		{ID: 3, Status: complaint.StatusReceived, CreatedAt: daysAgo(3)},
	}
	r := Aggregate(rows, Filter{}, now)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{r.Rows[0].ID, r.Rows[1].ID, r.Rows[2].ID})
}

func TestRankedGroupsOrder(t *testing.T) {
	rows := []Row{
		{Status: complaint.StatusReceived, District: "Sur", CreatedAt: now},
		{Status: complaint.StatusReceived, District: "Norte", CreatedAt: now},
		{Status: complaint.StatusReceived, District: "Norte", CreatedAt: now},
		{Status: complaint.StatusReceived, District: "Este", CreatedAt: now},
	}
	r := Aggregate(rows, Filter{}, now)
	require.Len(t, r.ByDistrict, 3)
	assert.Equal(t, "Norte", r.ByDistrict[0].Key)
	assert.Equal(t, "Este", r.ByDistrict[1].Key)
	assert.Equal(t, "Sur", r.ByDistrict[2].Key)
}
