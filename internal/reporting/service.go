// Package reporting is the dashboard facade. Each view loads the records,
// runs one computation and memoizes the result in the shared view cache.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/analytics"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/cache"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/matching"
)

// View identifies a dashboard view, its cache key and the message shown when it fails
type View struct {
	Name    string
	Failure string
}

var (
	ViewSummary       = View{Name: "summary", Failure: "Failed to get summary"}
	ViewTrends        = View{Name: "trends", Failure: "Failed to get trends"}
	ViewHealthIssues  = View{Name: "health_issues", Failure: "Failed to get health issues"}
	ViewTherapists    = View{Name: "therapist_workload", Failure: "Failed to get therapist data"}
	ViewPressure      = View{Name: "pressure_preferences", Failure: "Failed to get pressure data"}
	ViewFeelingScores = View{Name: "feeling_scores", Failure: "Failed to get feeling score data"}
	ViewHealthNotes   = View{Name: "health_notes", Failure: "Failed to get health notes data"}
	ViewDataQuality   = View{Name: "data_quality", Failure: "Failed to get data quality data"}
)

// Service serves every dashboard view
type Service struct {
	loader  domain.RecordLoader
	cache   *cache.Cache
	matcher *matching.Matcher
	now     func() time.Time
	logger  *logrus.Logger
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces the clock used for the summary timestamp
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new reporting service
func NewService(loader domain.RecordLoader, viewCache *cache.Cache, matcher *matching.Matcher, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		loader:  loader,
		cache:   viewCache,
		matcher: matcher,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns the overall impact summary
func (s *Service) Summary(ctx context.Context) (*analytics.Impact, error) {
	return compute(ctx, s, ViewSummary, ViewSummary.Name, func(records []domain.Record) *analytics.Impact {
		intakes, feedback := domain.SplitRecords(records)
		impact := analytics.OverallImpact(records, s.matcher.Match(intakes, feedback).Stats(), s.now())
		return &impact
	})
}

// Trends returns submissions bucketed by period
func (s *Service) Trends(ctx context.Context, period analytics.Period) (*TrendsChart, error) {
	return compute(ctx, s, ViewTrends, "trends_"+string(period), func(records []domain.Record) *TrendsChart {
		return trendsChart(period, analytics.Trends(records, period))
	})
}

// HealthIssues returns the most frequent health-check labels
func (s *Service) HealthIssues(ctx context.Context) (*BreakdownChart, error) {
	return compute(ctx, s, ViewHealthIssues, ViewHealthIssues.Name, func(records []domain.Record) *BreakdownChart {
		return healthIssuesChart(analytics.HealthIssues(records))
	})
}

// Therapists returns per-therapist workload
func (s *Service) Therapists(ctx context.Context) (*TherapistChart, error) {
	return compute(ctx, s, ViewTherapists, ViewTherapists.Name, func(records []domain.Record) *TherapistChart {
		return therapistChart(analytics.Therapists(records))
	})
}

// Pressure returns the pressure preference breakdown
func (s *Service) Pressure(ctx context.Context) (*BreakdownChart, error) {
	return compute(ctx, s, ViewPressure, ViewPressure.Name, func(records []domain.Record) *BreakdownChart {
		return pressureChart(analytics.PressurePreferences(records))
	})
}

// FeelingScores returns the before/after feeling analysis
func (s *Service) FeelingScores(ctx context.Context) (*FeelingScores, error) {
	return compute(ctx, s, ViewFeelingScores, ViewFeelingScores.Name, func(records []domain.Record) *FeelingScores {
		return feelingScores(matching.Compare(records, s.matcher))
	})
}

// DataQuality returns field completeness metrics
func (s *Service) DataQuality(ctx context.Context) (*analytics.DataQuality, error) {
	return compute(ctx, s, ViewDataQuality, ViewDataQuality.Name, func(records []domain.Record) *analytics.DataQuality {
		q := analytics.DataQualityMetrics(records)
		return &q
	})
}

// HealthNotes returns the recent health notes digest
func (s *Service) HealthNotes(ctx context.Context) (*analytics.HealthNotesDigest, error) {
	return compute(ctx, s, ViewHealthNotes, ViewHealthNotes.Name, func(records []domain.Record) *analytics.HealthNotesDigest {
		digest := analytics.HealthNotes(records)
		return &digest
	})
}

// ClearCache drops every memoized view
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// CacheStats reports view cache counters
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Refresh clears the cache and reports how many records the store now holds
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.cache.Clear()
	records, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.WithField("records", len(records)).Info("Analytics cache refreshed")
	return len(records), nil
}

// load degrades store failures to an empty snapshot; only cancellation is returned
func (s *Service) load(ctx context.Context) ([]domain.Record, error) {
	records, err := s.loader.LoadAll(ctx)
	if err == nil {
		return records, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	s.logger.WithError(err).Warn("Record store unavailable, serving empty dataset")
	return []domain.Record{}, nil
}

func compute[T any](ctx context.Context, s *Service, view View, key string, build func([]domain.Record) *T) (*T, error) {
	result, err := cache.GetOrCompute(ctx, s.cache, key, 0, func(ctx context.Context) (*T, error) {
		records, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		return isolate(s, view, key, records, build)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isolate[T any](s *Service, view View, key string, records []domain.Record, build func([]domain.Record) *T) (result *T, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"view":  view.Name,
				"key":   key,
				"panic": r,
			}).Error("View computation failed")
			result = nil
			err = domain.NewAppError(domain.ErrViewFailed, view.Failure, fmt.Sprint(r), "")
		}
	}()

	result = build(records)
	s.logger.WithFields(logrus.Fields{
		"view":     view.Name,
		"key":      key,
		"records":  len(records),
		"duration": time.Since(start),
	}).Debug("View computed")
	return result, nil
}
