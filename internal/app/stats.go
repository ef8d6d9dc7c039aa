package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"denuncias/api/internal/complaint"
	"denuncias/api/internal/export"
	"denuncias/api/internal/rbac"
	"denuncias/api/internal/report"
	"denuncias/api/internal/store"
)

func totalsFromCounts(counts store.StatusCounts) report.Totals {
	return report.Totals{
		Total:      counts.Total,
		Pendientes: counts.Received,
		EnProgreso: counts.InProgress,
		Resueltas:  counts.Resolved,
		Rechazadas: counts.Rejected,
	}
}

func (s *Service) MyStats(ctx context.Context, session Session) (report.Totals, error) {
	if !s.can(session, rbac.ActionOwnStats, 0) {
		return report.Totals{}, authorizationError()
	}
	counts, err := s.store.CountComplaintsByStatus(ctx, session.UserID)
	if err != nil {
		return report.Totals{}, s.storeError("count own complaints", err)
	}
	return totalsFromCounts(counts), nil
}

func (s *Service) GlobalStats(ctx context.Context, session Session) (report.Totals, error) {
	if !s.can(session, rbac.ActionGlobalStats, 0) {
		return report.Totals{}, authorizationError()
	}
	counts, err := s.store.CountComplaintsByStatus(ctx, 0)
	if err != nil {
		return report.Totals{}, s.storeError("count complaints", err)
	}
	return totalsFromCounts(counts), nil
}

// ReportFilterInput is the wire form of report.Filter.
type ReportFilterInput struct {
	Status     string `json:"status"`
	Days       int    `json:"days"`
	District   string `json:"district"`
	CategoryID int64  `json:"categoryId"`
}

func (in ReportFilterInput) toFilter() (report.Filter, error) {
	filter := report.Filter{
		SinceDays:  in.Days,
		District:   strings.TrimSpace(in.District),
		CategoryID: in.CategoryID,
	}
	if in.Days < 0 {
		return report.Filter{}, validationError("days must not be negative")
	}
	if strings.TrimSpace(in.Status) != "" {
		status, err := complaint.ParseStatus(in.Status)
		if err != nil {
			return report.Filter{}, validationError("Unknown status filter")
		}
		filter.Status = status
	}
	return filter, nil
}

// BuildReport aggregates every complaint matching the filter.
func (s *Service) BuildReport(ctx context.Context, session Session, input ReportFilterInput) (report.Report, error) {
	ctx, span := s.startSpan(ctx, "BuildReport")
	defer span.End()

	if !s.can(session, rbac.ActionGlobalStats, 0) {
		return report.Report{}, authorizationError()
	}
	filter, err := input.toFilter()
	if err != nil {
		return report.Report{}, err
	}
	return s.aggregate(ctx, filter)
}

func (s *Service) aggregate(ctx context.Context, filter report.Filter) (report.Report, error) {
	items, err := s.store.ListComplaints(ctx, store.ComplaintFilter{})
	if err != nil {
		return report.Report{}, s.storeError("list complaints", err)
	}
	rows := make([]report.Row, 0, len(items))
	for _, item := range items {
		row := report.Row{
			ID:           item.ID,
			Folio:        item.Folio,
			Title:        item.Title,
			Status:       complaint.Status(item.Status),
			CategoryID:   item.CategoryID,
			CategoryName: item.CategoryName,
			CreatedAt:    item.CreatedAt,
		}
		if item.District != nil {
			row.District = *item.District
		}
		rows = append(rows, row)
	}
	return report.Aggregate(rows, filter, s.clock()), nil
}

type ExportInput struct {
	Format  string            `json:"format"`
	Filters ReportFilterInput `json:"filters"`
}

func (s *Service) ExportReport(ctx context.Context, session Session, input ExportInput) (*export.Result, error) {
	ctx, span := s.startSpan(ctx, "ExportReport")
	defer span.End()

	if !s.can(session, rbac.ActionGlobalStats, 0) {
		return nil, authorizationError()
	}
	format, err := export.ParseFormat(input.Format)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "format must be pdf or docx", map[string]any{"invalid": []string{"format"}})
	}
	filter, err := input.Filters.toFilter()
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, dependencyError("Report export is not available", nil)
	}

	rep, err := s.aggregate(ctx, filter)
	if err != nil {
		return nil, err
	}
	result, err := s.exporter.Export(ctx, rep, format)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, dependencyError(err.Error(), err)
		}
		s.log().Error("export report", zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}
	return result, nil
}
