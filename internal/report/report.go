// Package report aggregates complaints into the breakdowns shown on the
// authority dashboard. It does no I/O.
package report

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"denuncias/api/internal/complaint"
)

const Unspecified = "unspecified"

// Date-range bucket keys, in display order.
const (
	RangeToday      = "today"
	RangeLast7Days  = "last_7_days"
	RangeLast30Days = "last_30_days"
	RangeOlder      = "older"
)

var dateRanges = []string{RangeToday, RangeLast7Days, RangeLast30Days, RangeOlder}

// Row is the slice of a complaint the aggregation needs.
type Row struct {
	ID           int64
	Folio        string
	Title        string
	Status       complaint.Status
	CategoryID   int64
	CategoryName string
	District     string
	CreatedAt    time.Time
}

// Filter narrows the rows before aggregation. Zero values match everything.
type Filter struct {
	Status     complaint.Status `json:"status,omitempty"`
	SinceDays  int              `json:"sinceDays,omitempty"`
	District   string           `json:"district,omitempty"`
	CategoryID int64            `json:"categoryId,omitempty"`
}

func (f Filter) Match(row Row, now time.Time) bool {
	if f.Status != "" && row.Status != f.Status {
		return false
	}
	if f.SinceDays > 0 && row.CreatedAt.Before(now.Add(-time.Duration(f.SinceDays)*24*time.Hour)) {
		return false
	}
	if f.District != "" && !strings.EqualFold(strings.TrimSpace(row.District), strings.TrimSpace(f.District)) {
		return false
	}
	if f.CategoryID != 0 && row.CategoryID != f.CategoryID {
		return false
	}
	return true
}

// Totals keeps the legacy dashboard keys.
type Totals struct {
	Total      int `json:"total"`
	Pendientes int `json:"pendientes"`
	EnProgreso int `json:"en_progreso"`
	Resueltas  int `json:"resueltas"`
	Rechazadas int `json:"rechazadas"`
}

func (t *Totals) add(status complaint.Status) {
	t.Total++
	switch status {
	case complaint.StatusReceived:
		t.Pendientes++
	case complaint.StatusInProgress:
		t.EnProgreso++
	case complaint.StatusResolved:
		t.Resueltas++
	case complaint.StatusRejected:
		t.Rechazadas++
	}
}

type Group struct {
	Key             string `json:"key"`
	Label           string `json:"label"`
	Count           int    `json:"count"`
	AvgResponseDays int    `json:"avgResponseDays"`
}

type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Filter      Filter    `json:"filter"`
	Totals      Totals    `json:"totals"`
	ByStatus    []Group   `json:"byStatus"`
	ByCategory  []Group   `json:"byCategory"`
	ByDistrict  []Group   `json:"byDistrict"`
	ByDateRange []Group   `json:"byDateRange"`
	// Rows are the filtered complaints, newest first. Used by exports.
	Rows []Row `json:"-"`
}

type accumulator struct {
	key, label string
	count      int
	ageSeconds float64
}

func (a *accumulator) add(age time.Duration) {
	a.count++
	a.ageSeconds += math.Max(age.Seconds(), 0)
}

func (a *accumulator) group() Group {
	g := Group{Key: a.key, Label: a.label, Count: a.count}
	if a.count > 0 {
		g.AvgResponseDays = int(math.Ceil(a.ageSeconds / float64(a.count) / 86400))
	}
	return g
}

type groupSet struct {
	order []string
	byKey map[string]*accumulator
}

func newGroupSet(fixed ...string) *groupSet {
	set := &groupSet{byKey: map[string]*accumulator{}}
	for _, key := range fixed {
		set.get(key, key)
	}
	return set
}

func (s *groupSet) get(key, label string) *accumulator {
	if acc, ok := s.byKey[key]; ok {
		return acc
	}
	acc := &accumulator{key: key, label: label}
	s.byKey[key] = acc
	s.order = append(s.order, key)
	return acc
}

func (s *groupSet) fixedGroups() []Group {
	groups := make([]Group, 0, len(s.order))
	for _, key := range s.order {
		groups = append(groups, s.byKey[key].group())
	}
	return groups
}

// rankedGroups orders by count descending, then label.
func (s *groupSet) rankedGroups() []Group {
	groups := s.fixedGroups()
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Label < groups[j].Label
	})
	return groups
}

// Aggregate filters rows and builds every breakdown. Rows with no district or
// category are counted under Unspecified rather than dropped.
func Aggregate(rows []Row, filter Filter, now time.Time) Report {
	statusKeys := make([]string, 0, len(complaint.Statuses))
	for _, s := range complaint.Statuses {
		statusKeys = append(statusKeys, string(s))
	}
	byStatus := newGroupSet(statusKeys...)
	byRange := newGroupSet(dateRanges...)
	byCategory := newGroupSet()
	byDistrict := newGroupSet()

	report := Report{GeneratedAt: now, Filter: filter, Rows: make([]Row, 0)}
	for _, row := range rows {
		if !filter.Match(row, now) {
			continue
		}
		age := now.Sub(row.CreatedAt)
		report.Totals.add(row.Status)
		report.Rows = append(report.Rows, row)

		byStatus.get(string(row.Status), string(row.Status)).add(age)
		bucket := DateRange(row.CreatedAt, now)
		byRange.get(bucket, bucket).add(age)
		categoryKey, categoryLabel := categoryGroupKey(row)
		byCategory.get(categoryKey, categoryLabel).add(age)
		districtKey := districtGroupKey(row.District)
		byDistrict.get(districtKey, districtKey).add(age)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].CreatedAt.After(report.Rows[j].CreatedAt)
	})
	report.ByStatus = byStatus.fixedGroups()
	report.ByDateRange = byRange.fixedGroups()
	report.ByCategory = byCategory.rankedGroups()
	report.ByDistrict = byDistrict.rankedGroups()
	return report
}

// DateRange places a creation time into one of the exclusive range buckets
// using whole elapsed days.
func DateRange(createdAt, now time.Time) string {
	days := complaint.DaysElapsed(createdAt, now)
	switch {
	case days < 1:
		return RangeToday
	case days <= 7:
		return RangeLast7Days
	case days <= 30:
		return RangeLast30Days
	default:
		return RangeOlder
	}
}

func categoryGroupKey(row Row) (string, string) {
	if row.CategoryID == 0 || strings.TrimSpace(row.CategoryName) == "" {
		return Unspecified, Unspecified
	}
	return strconv.FormatInt(row.CategoryID, 10), row.CategoryName
}

func districtGroupKey(district string) string {
	district = strings.TrimSpace(district)
	if district == "" {
		return Unspecified
	}
	return district
}
