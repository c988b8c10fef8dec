package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildwatch/models"
)

// SummaryService builds aggregate violation reports from recorded history
type SummaryService struct {
	uowFactory UnitOfWorkFactory
}

// NewSummaryService creates a new summary service
func NewSummaryService(uowFactory UnitOfWorkFactory) *SummaryService {
	return &SummaryService{uowFactory: uowFactory}
}

// WeeklyReport covers the 7 days ending at asOf. Returns "" when no
// violations were recorded in the window.
func (s *SummaryService) WeeklyReport(ctx context.Context, guildID string, asOf time.Time) (string, error) {
	end := dateOf(asOf).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -7)

	summaries, err := s.loadSummary(ctx, guildID, start, end)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "", nil
	}

	return formatSummary("Weekly ticket summary", start, end.AddDate(0, 0, -1), summaries), nil
}

// MonthlyReport covers asOf's calendar month. Returns "" when no
// violations were recorded in the window.
func (s *SummaryService) MonthlyReport(ctx context.Context, guildID string, asOf time.Time) (string, error) {
	day := dateOf(asOf)
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 1)

	summaries, err := s.loadSummary(ctx, guildID, start, end)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "", nil
	}

	return formatSummary("Monthly ticket summary", start, end.AddDate(0, 0, -1), summaries), nil
}

func (s *SummaryService) loadSummary(ctx context.Context, guildID string, from, to time.Time) ([]*models.ViolationSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	summaries, err := uow.ViolationRepository().GetGuildSummary(ctx, guildID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load violation summary for guild %s: %w", guildID, err)
	}

	return summaries, nil
}

func formatSummary(title string, from, to time.Time, summaries []*models.ViolationSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **%s** (%s to %s)\n", title,
		from.Format("Jan 2"), to.Format("Jan 2"))
	for _, s := range summaries {
		fmt.Fprintf(&b, "• %s: %d miss(es), %d tickets total\n", s.PlayerName, s.Misses, s.Tickets)
	}
	return b.String()
}
