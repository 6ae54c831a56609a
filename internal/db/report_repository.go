package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cartoonclub-backend-go/internal/models"
)

const (
	reportsCollection = "reports"
	mainSummaryDoc    = "main_summary"
	dailySummaryDoc   = "daily_summary"
)

// firestoreReportRepository implements the ReportRepository interface using Firestore.
type firestoreReportRepository struct {
	client *firestore.Client
}

// NewFirestoreReportRepository creates a new instance of firestoreReportRepository.
func NewFirestoreReportRepository(client *firestore.Client) ReportRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ReportRepository.")
	}
	return &firestoreReportRepository{client: client}
}

// SaveMainSummary overwrites reports/main_summary wholesale. Summary
// documents are derived values; a run always recomputes the full body, so a
// plain Set (no merge) keeps stale fields from surviving.
func (r *firestoreReportRepository) SaveMainSummary(ctx context.Context, summary *models.MainSummary) error {
	_, err := r.client.Collection(reportsCollection).Doc(mainSummaryDoc).Set(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to write reports/%s: %w", mainSummaryDoc, err)
	}
	return nil
}

// SaveDailySummary overwrites reports/daily_summary wholesale.
func (r *firestoreReportRepository) SaveDailySummary(ctx context.Context, summary *models.DailySummary) error {
	_, err := r.client.Collection(reportsCollection).Doc(dailySummaryDoc).Set(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to write reports/%s: %w", dailySummaryDoc, err)
	}
	return nil
}

// SaveMonthlyReport overwrites one reports/monthly_{YYYY}_{MM} document.
func (r *firestoreReportRepository) SaveMonthlyReport(ctx context.Context, report *models.MonthlyReport) error {
	docID := monthlyDocID(report.Year, report.Month)
	_, err := r.client.Collection(reportsCollection).Doc(docID).Set(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to write reports/%s: %w", docID, err)
	}
	return nil
}

// MainSummary reads the current reports/main_summary document.
func (r *firestoreReportRepository) MainSummary(ctx context.Context) (*models.MainSummary, error) {
	docSnap, err := r.client.Collection(reportsCollection).Doc(mainSummaryDoc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("reports/%s not found: %w", mainSummaryDoc, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reports/%s: %w", mainSummaryDoc, err)
	}

	var summary models.MainSummary
	if err := docSnap.DataTo(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode reports/%s: %w", mainSummaryDoc, err)
	}
	return &summary, nil
}

// MonthlyReports reads the trailing monthly documents ending at the month of
// now, oldest first. Months that were never aggregated are skipped.
func (r *firestoreReportRepository) MonthlyReports(ctx context.Context, now time.Time, months int) ([]*models.MonthlyReport, error) {
	var reports []*models.MonthlyReport
	for i := months - 1; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		docID := monthlyDocID(monthStart.Year(), int(monthStart.Month()))

		docSnap, err := r.client.Collection(reportsCollection).Doc(docID).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return nil, fmt.Errorf("failed to get reports/%s: %w", docID, err)
		}

		var report models.MonthlyReport
		if err := docSnap.DataTo(&report); err != nil {
			return nil, fmt.Errorf("failed to decode reports/%s: %w", docID, err)
		}
		reports = append(reports, &report)
	}
	return reports, nil
}

func monthlyDocID(year, month int) string {
	return fmt.Sprintf("monthly_%d_%02d", year, month)
}
