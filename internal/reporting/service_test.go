package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/analytics"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/cache"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	dt "github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain/domaintest"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/matching"
)

// MockLoader is a mock implementation of domain.RecordLoader
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) LoadAll(ctx context.Context) ([]domain.Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]domain.Record)
	return records, args.Error(1)
}

const mobile = "0400000001"

func sampleRecords() []domain.Record {
	return dt.Records(
		dt.Intake(dt.Base, dt.IntakeClient("Jane", mobile), dt.IntakeTherapist("Sam"), dt.Pre(4),
			dt.Pressure(domain.PressureFirm), dt.HealthChecks("Pregnant"), dt.Consent(true, true)),
		dt.Intake(dt.Base.Add(time.Hour), dt.Table(), dt.IntakeTherapist("Alex"), dt.Pre(6),
			dt.HealthChecks("Pregnant", "Back pain"), dt.Notes("check neck", "")),
		dt.Intake(dt.Base.Add(2*time.Hour), dt.Pressure(domain.PressureLight)),
		dt.Feedback(dt.Base.Add(2*time.Hour), dt.FeedbackClient("", mobile), dt.FeedbackTherapist("Sam"),
			dt.Post(8), dt.Recommend(domain.RecommendYes), dt.Comments("lovely")),
	)
}

func newTestService(t *testing.T, loader domain.RecordLoader) *Service {
	t.Helper()
	logger, _ := test.NewNullLogger()
	viewCache, err := cache.New(cache.Config{Logger: logger})
	require.NoError(t, err)
	now := func() time.Time { return dt.Base.Add(24 * time.Hour) }
	return NewService(loader, viewCache, matching.New(domain.DefaultMatchingConfig()), logger, WithClock(now))
}

func TestService_Summary(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil).Once()
	svc := newTestService(t, loader)
	ctx := context.Background()

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalSubmissions)
	assert.Equal(t, 3, summary.TotalIntakes)
	assert.Equal(t, 1, summary.TotalFeedback)
	assert.Equal(t, 4.0, summary.AvgImprovement)
	assert.Equal(t, 33, summary.MatchedFeedbackRate)
	assert.Equal(t, "Sam", summary.TopTherapist)
	assert.Equal(t, dt.Base.Add(24*time.Hour), summary.LastUpdated)

	// Served from the cache without touching the store
	again, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Same(t, summary, again)
	loader.AssertNumberOfCalls(t, "LoadAll", 1)
}

func TestService_Trends(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil)
	svc := newTestService(t, loader)
	ctx := context.Background()

	daily, err := svc.Trends(ctx, analytics.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-05"}, daily.Labels)
	assert.Equal(t, []int{4}, daily.Values)
	require.Len(t, daily.Datasets, 3)
	assert.Equal(t, Dataset{Label: "Seated", Data: []float64{2}}, daily.Datasets[0])
	assert.Equal(t, Dataset{Label: "Table", Data: []float64{1}}, daily.Datasets[1])
	assert.Equal(t, Dataset{Label: "Feedback", Data: []float64{1}}, daily.Datasets[2])

	monthly, err := svc.Trends(ctx, analytics.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03"}, monthly.Labels)
	assert.Equal(t, analytics.PeriodMonthly, monthly.Period)

	// Each period is cached under its own key
	loader.AssertNumberOfCalls(t, "LoadAll", 2)
}

func TestService_Breakdowns(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil)
	svc := newTestService(t, loader)
	ctx := context.Background()

	issues, err := svc.HealthIssues(ctx)
	require.NoError(t, err)
	assert.Equal(t, &BreakdownChart{
		Labels:      []string{"Pregnant", "Back pain"},
		Data:        []int{2, 1},
		Percentages: []int{67, 33},
	}, issues)

	pressure, err := svc.Pressure(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Light", "Firm", "Unknown"}, pressure.Labels)
	assert.Equal(t, []int{33, 33, 33}, pressure.Percentages)

	therapists, err := svc.Therapists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sam", "Alex", "Unknown"}, therapists.Labels)
	require.Len(t, therapists.Datasets, 3)
	assert.Equal(t, "Sessions", therapists.Datasets[0].Label)
	assert.Equal(t, []float64{2, 1, 1}, therapists.Datasets[0].Data)
	assert.Equal(t, []float64{4, 6, 0}, therapists.Datasets[1].Data)
	assert.Equal(t, []float64{8, 0, 0}, therapists.Datasets[2].Data)
	assert.Len(t, therapists.Detail, 3)
}

func TestService_FeelingScores(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil)
	svc := newTestService(t, loader)

	scores, err := svc.FeelingScores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FeelingSummary{
		AvgPre:            5,
		AvgPost:           8,
		AvgImprovement:    4,
		ImprovementLabel:  "Positive",
		MatchQuality:      50,
		MatchQualityLabel: "Fair",
	}, scores.Summary)
	assert.Equal(t, FeelingStats{PreScoresCount: 2, PostScoresCount: 1, MatchedPairsCount: 1, UnmatchedCount: 1}, scores.Stats)
	assert.Len(t, scores.Distributions.Pre, 10)
	assert.Equal(t, 1, scores.Distributions.Post[7].Count)
}

func TestService_DataQualityAndHealthNotes(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil)
	svc := newTestService(t, loader)
	ctx := context.Background()

	quality, err := svc.DataQuality(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, quality.TotalRecords)
	assert.Equal(t, 100, quality.ValidDateRate)
	assert.Equal(t, 100, quality.FeelingPostRate)

	notes, err := svc.HealthNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, notes.TotalReviewNotes)
	require.Len(t, notes.ReviewNotes, 1)
	assert.Equal(t, "Alex", notes.ReviewNotes[0].Therapist)
}

func TestService_StoreFailureDegradesToEmpty(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(nil, errors.New("disk on fire"))
	svc := newTestService(t, loader)
	ctx := context.Background()

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalSubmissions)
	assert.Equal(t, analytics.NoTherapist, summary.TopTherapist)

	issues, err := svc.HealthIssues(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues.Labels)

	scores, err := svc.FeelingScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Neutral", scores.Summary.ImprovementLabel)
	assert.Equal(t, "Fair", scores.Summary.MatchQualityLabel)
}

func TestService_CancellationIsReturned(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(nil, context.Canceled)
	svc := newTestService(t, loader)

	_, err := svc.DataQuality(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, svc.CacheStats().Entries)
}

func TestService_PanicIsolatedToOneView(t *testing.T) {
	loader := new(MockLoader)
	// A nil record makes every view that reads records panic
	loader.On("LoadAll", mock.Anything).Return([]domain.Record{nil}, nil).Once()
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil)
	svc := newTestService(t, loader)
	ctx := context.Background()

	_, err := svc.HealthIssues(ctx)
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrViewFailed, appErr.Code)
	assert.Equal(t, "Failed to get health issues", appErr.Message)

	// Other views are unaffected and the failure was not cached
	pressure, err := svc.Pressure(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, pressure.Labels)

	issues, err := svc.HealthIssues(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pregnant", issues.Labels[0])
}

func TestService_RefreshClearsCache(t *testing.T) {
	loader := new(MockLoader)
	loader.On("LoadAll", mock.Anything).Return(sampleRecords(), nil)
	svc := newTestService(t, loader)
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats().Entries)

	count, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 0, svc.CacheStats().Entries)

	second, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	loader.AssertNumberOfCalls(t, "LoadAll", 3)

	svc.ClearCache()
	assert.Equal(t, 0, svc.CacheStats().Entries)
}
