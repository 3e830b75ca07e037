package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/finance"
	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
	"github.com/noah-isme/sma-finance-api/pkg/export"
)

type snapshotReader interface {
	Load(ctx context.Context, studentID, academicYearID string) (*models.FinanceSnapshot, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// FinanceService builds read models (summary, recovery) from a fresh snapshot.
type FinanceService struct {
	snapshots snapshotReader
	csv       csvRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewFinanceService constructs a FinanceService.
func NewFinanceService(snapshots snapshotReader, csv csvRenderer, metrics *MetricsService, logger *zap.Logger) *FinanceService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{
		snapshots: snapshots,
		csv:       csv,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Snapshot loads the finance state of a student.
func (s *FinanceService) Snapshot(ctx context.Context, studentID, academicYearID string) (*models.FinanceSnapshot, error) {
	studentID = strings.TrimSpace(studentID)
	academicYearID = strings.TrimSpace(academicYearID)
	if studentID == "" || academicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and academic year id are required")
	}

	start := time.Now()
	snapshot, err := s.snapshots.Load(ctx, studentID, academicYearID)
	s.metrics.ObserveSnapshotLoad(time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student finances")
	}
	return snapshot, nil
}

// Summary returns the financial summary of a student for an academic year.
func (s *FinanceService) Summary(ctx context.Context, studentID, academicYearID string) (*finance.FinancialSummary, error) {
	snapshot, err := s.Snapshot(ctx, studentID, academicYearID)
	if err != nil {
		return nil, err
	}
	summary, err := summaryOf(snapshot, academicYearID, s.now())
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Recovery returns what the student paid for the academic year, grouped by fee type.
func (s *FinanceService) Recovery(ctx context.Context, studentID, academicYearID string) (*dto.RecoveryView, error) {
	snapshot, err := s.Snapshot(ctx, studentID, academicYearID)
	if err != nil {
		return nil, err
	}
	summary, err := summaryOf(snapshot, academicYearID, s.now())
	if err != nil {
		return nil, err
	}

	payments := paymentsForSummary(snapshot.Payments, summary)
	receipt := finance.BuildReceipt(payments, snapshot.Installments, summary.Pricing, snapshot.PaymentMethods)
	return &dto.RecoveryView{
		StudentID:      summary.StudentID,
		AcademicYearID: summary.AcademicYearID,
		Summary:        summary,
		Receipt:        receipt,
	}, nil
}

// RecoveryCSV renders the recovery view as one CSV row per fee type and method.
func (s *FinanceService) RecoveryCSV(view *dto.RecoveryView) ([]byte, error) {
	headers := []string{"fee_type", "method", "amount", "payments"}
	rows := make([]map[string]string, 0)
	for _, line := range view.Receipt.Lines {
		rows = append(rows, map[string]string{
			"fee_type": line.FeeType,
			"method":   "all",
			"amount":   line.Amount.String(),
			"payments": fmt.Sprintf("%d", line.Payments),
		})
		for _, m := range line.Methods {
			rows = append(rows, map[string]string{
				"fee_type": line.FeeType,
				"method":   m.Name,
				"amount":   m.Amount.String(),
			})
		}
	}
	rows = append(rows, map[string]string{"fee_type": "total", "method": "all", "amount": view.Receipt.Total.String()})

	data, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render recovery csv")
	}
	return data, nil
}

func summaryOf(snapshot *models.FinanceSnapshot, academicYearID string, now time.Time) (*finance.FinancialSummary, error) {
	summary := finance.BuildSummaryFromSnapshot(*snapshot, academicYearID, now)
	if summary == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no active registration for this academic year")
	}
	return summary, nil
}

func paymentsForSummary(payments []models.Payment, summary *finance.FinancialSummary) []models.Payment {
	filtered := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.StudentID != summary.StudentID {
			continue
		}
		if _, ok := summary.Installment(p.InstallmentID); ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
