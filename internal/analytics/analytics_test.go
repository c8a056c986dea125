package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	dt "github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain/domaintest"
)

var day = 24 * time.Hour

func TestRounding(t *testing.T) {
	assert.Equal(t, 67, Round(66.666))
	assert.Equal(t, 3, Round(2.5))
	assert.Equal(t, -2, Round(-2.5), "half rounds toward +Inf")
	assert.Equal(t, 2.3, Round1(2.25))
	assert.Equal(t, -0.2, Round1(-0.25))
	assert.Equal(t, 3.3, Mean1([]int{3, 3, 4}))
	assert.Equal(t, 0.0, Mean1(nil))

	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 100, Percent(5, 0), "clamped when the denominator is floored")
	assert.Equal(t, 50, Percent(1, 2))
}

func TestParsePeriod(t *testing.T) {
	tests := map[string]Period{
		"7":       PeriodDaily,
		"30":      PeriodWeekly,
		"90":      PeriodMonthly,
		"daily":   PeriodDaily,
		"Weekly":  PeriodWeekly,
		"monthly": PeriodMonthly,
		"all":     PeriodDaily,
		"":        PeriodDaily,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePeriod(in), in)
	}
}

func TestBucketKey(t *testing.T) {
	tuesday := dt.Base
	assert.Equal(t, "2024-03-05", BucketKey(tuesday, PeriodDaily))
	assert.Equal(t, "2024-03-03", BucketKey(tuesday, PeriodWeekly))
	assert.Equal(t, "2024-03", BucketKey(tuesday, PeriodMonthly))

	// Week starting Sunday crosses the month boundary
	friday := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-25", BucketKey(friday, PeriodWeekly))

	// Non-UTC input is bucketed by its UTC date
	sydney := time.FixedZone("AEDT", 11*3600)
	early := time.Date(2024, 3, 6, 8, 0, 0, 0, sydney)
	assert.Equal(t, "2024-03-05", BucketKey(early, PeriodDaily))
}

func TestTrends(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base.Add(2*day)),
		dt.Intake(dt.Base, dt.Table()),
		dt.Feedback(dt.Base.Add(time.Hour)),
		dt.Intake(time.Time{}),
		dt.Feedback(dt.Base.Add(40*day)),
	)

	daily := Trends(records, PeriodDaily)
	require.Len(t, daily, 3)
	assert.Equal(t, "2024-03-05", daily[0].Date)
	assert.Equal(t, 2, daily[0].Count)
	assert.Equal(t, FormTypeCounts{Seated: 0, Table: 1, Feedback: 1}, daily[0].FormTypes)
	assert.Equal(t, "2024-03-07", daily[1].Date)
	assert.Equal(t, "2024-04-14", daily[2].Date)

	monthly := Trends(records, PeriodMonthly)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-03", monthly[0].Date)
	assert.Equal(t, 3, monthly[0].Count)

	assert.Empty(t, Trends(nil, PeriodDaily))
	assert.NotNil(t, Trends(nil, PeriodDaily))
}

func TestTrends_CountsSumToDatedRecords(t *testing.T) {
	var records []domain.Record
	dated := 0
	for i := 0; i < 60; i++ {
		when := dt.Base.Add(time.Duration(i*7) * time.Hour)
		if i%9 == 0 {
			when = time.Time{}
		} else {
			dated++
		}
		if i%2 == 0 {
			records = append(records, dt.Intake(when))
		} else {
			records = append(records, dt.Feedback(when))
		}
	}

	for _, period := range []Period{PeriodDaily, PeriodWeekly, PeriodMonthly} {
		sum := 0
		for _, b := range Trends(records, period) {
			sum += b.Count
			assert.Equal(t, b.Count, b.FormTypes.Seated+b.FormTypes.Table+b.FormTypes.Feedback)
		}
		assert.Equal(t, dated, sum, string(period))
	}
}

// A Monday and the Tuesday after it share a Sunday-aligned week; the next Monday does not
func TestTrends_WeeklyTuesdayAndMonday(t *testing.T) {
	tuesday := dt.Base
	monday := tuesday.Add(-day)
	require.Equal(t, time.Monday, monday.Weekday())

	weekly := Trends(dt.Records(dt.Intake(tuesday), dt.Feedback(monday)), PeriodWeekly)
	require.Len(t, weekly, 1)
	assert.Equal(t, "2024-03-03", weekly[0].Date)
	assert.Equal(t, 2, weekly[0].Count)

	// The next Monday is past the following Sunday
	next := Trends(dt.Records(dt.Intake(tuesday), dt.Intake(tuesday.Add(6*day))), PeriodWeekly)
	require.Len(t, next, 2)
	assert.Equal(t, "2024-03-10", next[1].Date)
}

// Three intakes, two flagged Pregnant
func TestHealthIssues_Pregnant(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base, dt.HealthChecks("Pregnant")),
		dt.Intake(dt.Base, dt.HealthChecks("Pregnant", "Back pain")),
		dt.Intake(dt.Base),
	)

	issues := HealthIssues(records)
	require.Len(t, issues, 2)
	assert.Equal(t, HealthIssue{Issue: "Pregnant", Count: 2, Percentage: 67}, issues[0])
	assert.Equal(t, HealthIssue{Issue: "Back pain", Count: 1, Percentage: 33}, issues[1])
}

// Labels are flattened, so a repeat inside one record counts again
func TestHealthIssues_RepeatedLabel(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base, dt.HealthChecks("Pregnant", "Pregnant")),
		dt.Intake(dt.Base),
	)

	issues := HealthIssues(records)
	require.Len(t, issues, 1)
	assert.Equal(t, HealthIssue{Issue: "Pregnant", Count: 2, Percentage: 100}, issues[0])

	// Percentages stay within bounds when repeats outnumber intakes
	issues = HealthIssues(dt.Records(dt.Intake(dt.Base, dt.HealthChecks("Pregnant", "Pregnant"))))
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Count)
	assert.Equal(t, 100, issues[0].Percentage)
}

func TestHealthIssues_TopTenAndTies(t *testing.T) {
	labels := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	records := dt.Records(
		dt.Intake(dt.Base, dt.HealthChecks(labels...)),
		dt.Intake(dt.Base, dt.HealthChecks("L", "L", "K")),
	)

	issues := HealthIssues(records)
	require.Len(t, issues, MaxHealthIssues)
	assert.Equal(t, "K", issues[0].Issue)
	assert.Equal(t, "L", issues[1].Issue)
	assert.Equal(t, 2, issues[1].Count, "a label repeated within one record counts once")
	assert.Equal(t, "A", issues[2].Issue)
	assert.Equal(t, "H", issues[9].Issue)
	for _, issue := range issues {
		assert.GreaterOrEqual(t, issue.Percentage, 0)
		assert.LessOrEqual(t, issue.Percentage, 100)
	}

	assert.Empty(t, HealthIssues(nil))
}

func TestTherapists(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base, dt.IntakeTherapist("Sam"), dt.Pre(4)),
		dt.Intake(dt.Base, dt.IntakeTherapist("Alex"), dt.Pre(6)),
		dt.Feedback(dt.Base, dt.FeedbackTherapist("Alex"), dt.Post(9)),
		dt.Intake(dt.Base, dt.IntakeTherapist("Alex"), dt.Pre(5)),
		dt.Feedback(dt.Base, dt.Post(7)),
		dt.Intake(dt.Base, dt.IntakeTherapist("Sam"), dt.Pre(3)),
		dt.Feedback(dt.Base, dt.FeedbackTherapist("Sam")),
	)

	stats := Therapists(records)
	require.Len(t, stats, 3)

	assert.Equal(t, TherapistStats{Therapist: "Sam", SessionCount: 3, AvgFeelingPre: 3.5, AvgFeelingPost: 0, FeedbackCount: 0}, stats[0])
	assert.Equal(t, TherapistStats{Therapist: "Alex", SessionCount: 3, AvgFeelingPre: 5.5, AvgFeelingPost: 9, FeedbackCount: 1}, stats[1])
	assert.Equal(t, domain.UnknownTherapist, stats[2].Therapist)
	assert.Equal(t, 1, stats[2].SessionCount)
	assert.Equal(t, 7.0, stats[2].AvgFeelingPost)
}

func TestPressurePreferences(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base, dt.Pressure(domain.PressureFirm)),
		dt.Intake(dt.Base, dt.Pressure(domain.PressureLight)),
		dt.Intake(dt.Base, dt.Pressure(domain.PressureFirm)),
		dt.Intake(dt.Base),
		dt.Intake(dt.Base, dt.Pressure(domain.PressureLight)),
		dt.Intake(dt.Base, dt.Pressure("Deep")),
		dt.Feedback(dt.Base),
	)

	shares := PressurePreferences(records)
	require.Len(t, shares, 3)
	assert.Equal(t, PressureShare{Preference: domain.PressureLight, Count: 2, Percentage: 33}, shares[0])
	assert.Equal(t, PressureShare{Preference: domain.PressureFirm, Count: 2, Percentage: 33}, shares[1])
	assert.Equal(t, PressureShare{Preference: domain.PressureUnknown, Count: 2, Percentage: 33}, shares[2])

	assert.Empty(t, PressurePreferences(dt.Records(dt.Feedback(dt.Base))))
}

func TestDataQualityMetrics(t *testing.T) {
	records := dt.Records(
		dt.Intake(dt.Base, dt.IntakeClient("Jane", "0400000001"), dt.Notes("check shoulder", "")),
		dt.Intake(time.Time{}, dt.IntakeClient("John", "")),
		dt.Feedback(dt.Base, dt.FeedbackClient("", "0400000001"), dt.Post(8), dt.Comments("great")),
		dt.Feedback(dt.Base),
	)
	records[0].Meta().Client.Email = "jane@example.com"

	q := DataQualityMetrics(records)
	assert.Equal(t, 4, q.TotalRecords)
	assert.Equal(t, 75, q.ValidDateRate)
	assert.Equal(t, 50, q.MobileRate)
	assert.Equal(t, 25, q.EmailRate)
	assert.Equal(t, 25, q.CommentsRate)
	assert.Equal(t, 25, q.HealthNotesRate)
	assert.Equal(t, 50, q.FeelingPostRate)
	assert.Len(t, q.Suggestions, 4)
}

func TestDataQualityMetrics_Empty(t *testing.T) {
	q := DataQualityMetrics(nil)
	assert.Equal(t, 0, q.TotalRecords)
	assert.Equal(t, 0, q.ValidDateRate)
	assert.NotNil(t, q.Suggestions)
	assert.Empty(t, q.Suggestions)
}

func TestDataQualityMetrics_NoHealthNotes(t *testing.T) {
	q := DataQualityMetrics(dt.Records(dt.Intake(dt.Base, dt.IntakeClient("Jane", "0400000001"))))
	assert.Contains(t, q.Suggestions, "No health notes recorded: check the intake health section is being completed")
}

func TestHealthNotes(t *testing.T) {
	var records []domain.Record
	for i := 0; i < 7; i++ {
		records = append(records, dt.Intake(dt.Base.Add(time.Duration(i)*day), dt.Notes("review", "")))
	}
	records = append(records,
		dt.Intake(time.Time{}, dt.Notes("", "undated avoid")),
		dt.Intake(dt.Base, dt.IntakeTherapist("Sam"), dt.Notes("", "avoid lower back")),
	)
	flagged := dt.Intake(dt.Base)
	flagged.HasAvoidNotes = true
	records = append(records, flagged)

	digest := HealthNotes(records)
	assert.Equal(t, 7, digest.TotalReviewNotes)
	assert.Equal(t, 3, digest.TotalAvoidNotes)

	require.Len(t, digest.ReviewNotes, MaxDigestNotes)
	assert.Equal(t, "2024-03-11", digest.ReviewNotes[0].Date)
	assert.Equal(t, "2024-03-07", digest.ReviewNotes[4].Date)

	require.Len(t, digest.AvoidNotes, 2)
	assert.Equal(t, "avoid lower back", digest.AvoidNotes[0].Note)
	assert.Equal(t, "Sam", digest.AvoidNotes[0].Therapist)
	assert.Equal(t, "undated avoid", digest.AvoidNotes[1].Note)
	assert.Empty(t, digest.AvoidNotes[1].Date)
	assert.Equal(t, domain.UnknownTherapist, digest.AvoidNotes[1].Therapist)
}

func TestWeekOverWeek(t *testing.T) {
	buckets := func(counts ...int) []TrendBucket {
		out := make([]TrendBucket, len(counts))
		for i, c := range counts {
			out[i] = TrendBucket{Count: c}
		}
		return out
	}

	assert.Equal(t, 0, WeekOverWeek(buckets(1, 2, 3, 4, 5, 6)))
	// Seven buckets: nothing before them, denominator floored at 1
	assert.Equal(t, 700, WeekOverWeek(buckets(1, 1, 1, 1, 1, 1, 1)))
	assert.Equal(t, 100, WeekOverWeek(buckets(1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2)))
	assert.Equal(t, -50, WeekOverWeek(buckets(2, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1)))
	// Only the last fourteen buckets count
	assert.Equal(t, 0, WeekOverWeek(buckets(50, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)))
}

func TestOverallImpact(t *testing.T) {
	now := dt.Base.Add(3 * day)
	records := dt.Records(
		dt.Intake(dt.Base, dt.IntakeTherapist("Sam"), dt.Consent(true, true)),
		dt.Intake(dt.Base, dt.IntakeTherapist("Sam"), dt.Consent(true, false)),
		dt.Intake(dt.Base, dt.IntakeTherapist("Alex")),
		dt.Feedback(dt.Base, dt.FeedbackTherapist("Sam"), dt.Recommend(domain.RecommendYes)),
		dt.Feedback(dt.Base, dt.Recommend(domain.RecommendNo)),
	)

	impact := OverallImpact(records, PairingStats{AvgImprovement: 2.5, MatchedPairs: 2}, now)
	assert.Equal(t, 5, impact.TotalSubmissions)
	assert.Equal(t, 3, impact.TotalIntakes)
	assert.Equal(t, 2, impact.TotalFeedback)
	assert.Equal(t, 67, impact.ConsentRate)
	assert.Equal(t, 33, impact.EmailOptInRate)
	assert.Equal(t, 50, impact.RecommendationRate)
	assert.Equal(t, 2.5, impact.AvgImprovement)
	assert.Equal(t, 67, impact.MatchedFeedbackRate)
	assert.Equal(t, "Sam", impact.TopTherapist)
	assert.Equal(t, 3, impact.TopTherapistSessions)
	assert.Equal(t, 0, impact.WeekOverWeekChange)
	assert.Equal(t, now, impact.LastUpdated)
}

func TestOverallImpact_Empty(t *testing.T) {
	impact := OverallImpact(nil, PairingStats{}, dt.Base)
	assert.Equal(t, NoTherapist, impact.TopTherapist)
	assert.Equal(t, 0, impact.TopTherapistSessions)
	assert.Equal(t, 0, impact.ConsentRate)
	assert.Equal(t, 0, impact.MatchedFeedbackRate)
}
