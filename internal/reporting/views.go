package reporting

import (
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/analytics"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/matching"
)

// Dataset is one chart series
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// TrendsChart is the submissions-over-time chart
type TrendsChart struct {
	Period   analytics.Period        `json:"period"`
	Labels   []string                `json:"labels"`
	Values   []int                   `json:"values"`
	Datasets []Dataset               `json:"datasets"`
	Buckets  []analytics.TrendBucket `json:"buckets"`
}

// BreakdownChart backs the health-issue and pressure charts
type BreakdownChart struct {
	Labels      []string `json:"labels"`
	Data        []int    `json:"data"`
	Percentages []int    `json:"percentages"`
}

// TherapistChart is the therapist workload chart
type TherapistChart struct {
	Labels   []string                   `json:"labels"`
	Datasets []Dataset                  `json:"datasets"`
	Detail   []analytics.TherapistStats `json:"detail"`
}

// FeelingSummary headlines the feeling-score view
type FeelingSummary struct {
	AvgPre            float64 `json:"avgPre"`
	AvgPost           float64 `json:"avgPost"`
	AvgImprovement    float64 `json:"avgImprovement"`
	ImprovementLabel  string  `json:"improvementLabel"`
	MatchQuality      int     `json:"matchQuality"`
	MatchQualityLabel string  `json:"matchQualityLabel"`
}

// FeelingStats counts the scores behind the feeling-score view
type FeelingStats struct {
	PreScoresCount    int `json:"preScoresCount"`
	PostScoresCount   int `json:"postScoresCount"`
	MatchedPairsCount int `json:"matchedPairsCount"`
	UnmatchedCount    int `json:"unmatchedCount"`
}

// FeelingScores is the before/after wellbeing view
type FeelingScores struct {
	Summary       FeelingSummary         `json:"summary"`
	Distributions matching.Distributions `json:"distributions"`
	Stats         FeelingStats           `json:"stats"`
}

func trendsChart(period analytics.Period, buckets []analytics.TrendBucket) *TrendsChart {
	chart := &TrendsChart{
		Period:  period,
		Labels:  make([]string, len(buckets)),
		Values:  make([]int, len(buckets)),
		Buckets: buckets,
	}
	seated := make([]float64, len(buckets))
	table := make([]float64, len(buckets))
	feedback := make([]float64, len(buckets))
	for i, b := range buckets {
		chart.Labels[i] = b.Date
		chart.Values[i] = b.Count
		seated[i] = float64(b.FormTypes.Seated)
		table[i] = float64(b.FormTypes.Table)
		feedback[i] = float64(b.FormTypes.Feedback)
	}
	chart.Datasets = []Dataset{
		{Label: "Seated", Data: seated},
		{Label: "Table", Data: table},
		{Label: "Feedback", Data: feedback},
	}
	return chart
}

func healthIssuesChart(issues []analytics.HealthIssue) *BreakdownChart {
	chart := newBreakdownChart(len(issues))
	for i, issue := range issues {
		chart.Labels[i] = issue.Issue
		chart.Data[i] = issue.Count
		chart.Percentages[i] = issue.Percentage
	}
	return chart
}

func pressureChart(shares []analytics.PressureShare) *BreakdownChart {
	chart := newBreakdownChart(len(shares))
	for i, share := range shares {
		chart.Labels[i] = string(share.Preference)
		chart.Data[i] = share.Count
		chart.Percentages[i] = share.Percentage
	}
	return chart
}

func newBreakdownChart(n int) *BreakdownChart {
	return &BreakdownChart{
		Labels:      make([]string, n),
		Data:        make([]int, n),
		Percentages: make([]int, n),
	}
}

func therapistChart(stats []analytics.TherapistStats) *TherapistChart {
	chart := &TherapistChart{
		Labels: make([]string, len(stats)),
		Detail: stats,
	}
	sessions := make([]float64, len(stats))
	pre := make([]float64, len(stats))
	post := make([]float64, len(stats))
	for i, s := range stats {
		chart.Labels[i] = s.Therapist
		sessions[i] = float64(s.SessionCount)
		pre[i] = s.AvgFeelingPre
		post[i] = s.AvgFeelingPost
	}
	chart.Datasets = []Dataset{
		{Label: "Sessions", Data: sessions},
		{Label: "Avg Pre-Feeling", Data: pre},
		{Label: "Avg Post-Feeling", Data: post},
	}
	return chart
}

func feelingScores(c matching.Comparison) *FeelingScores {
	quality := c.MatchQuality()
	return &FeelingScores{
		Summary: FeelingSummary{
			AvgPre:            c.AvgPre,
			AvgPost:           c.AvgPost,
			AvgImprovement:    c.AvgImprovement,
			ImprovementLabel:  improvementLabel(c.AvgImprovement),
			MatchQuality:      quality,
			MatchQualityLabel: matchQualityLabel(quality),
		},
		Distributions: c.Distribution,
		Stats: FeelingStats{
			PreScoresCount:    c.PreScoresCount,
			PostScoresCount:   c.PostScoresCount,
			MatchedPairsCount: c.MatchedPairsCount,
			UnmatchedCount:    c.PreScoresCount - c.MatchedPairsCount,
		},
	}
}

func improvementLabel(avg float64) string {
	if avg > 0 {
		return "Positive"
	}
	return "Neutral"
}

func matchQualityLabel(quality int) string {
	switch {
	case quality >= 80:
		return "Excellent"
	case quality >= 60:
		return "Good"
	default:
		return "Fair"
	}
}
