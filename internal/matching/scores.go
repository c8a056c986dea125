package matching

import (
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/analytics"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Bucket is the number of times one feeling score was given
type Bucket struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

// Distribution buckets scores 1 to 10. Values outside that range are dropped.
func Distribution(scores []int) []Bucket {
	buckets := make([]Bucket, domain.MaxFeeling-domain.MinFeeling+1)
	for i := range buckets {
		buckets[i].Score = domain.MinFeeling + i
	}
	for _, s := range scores {
		if s < domain.MinFeeling || s > domain.MaxFeeling {
			continue
		}
		buckets[s-domain.MinFeeling].Count++
	}
	return buckets
}

// Distributions holds the pre and post histograms
type Distributions struct {
	Pre  []Bucket `json:"pre"`
	Post []Bucket `json:"post"`
}

// Comparison is the before/after feeling analysis
type Comparison struct {
	AvgPre            float64       `json:"avgPre"`
	AvgPost           float64       `json:"avgPost"`
	AvgImprovement    float64       `json:"avgImprovement"`
	PreScoresCount    int           `json:"preScoresCount"`
	PostScoresCount   int           `json:"postScoresCount"`
	MatchedPairsCount int           `json:"matchedPairsCount"`
	Distribution      Distributions `json:"distribution"`
	Pairs             []Pair        `json:"pairs"`
}

// MatchQuality is the share of pre-scored intakes that found a feedback pair
func (c Comparison) MatchQuality() int {
	if c.PreScoresCount == 0 {
		return 0
	}
	return analytics.Percent(c.MatchedPairsCount, c.PreScoresCount)
}

// Compare computes score averages and distributions over all records and
// the improvement across matched pairs.
func Compare(records []domain.Record, m *Matcher) Comparison {
	intakes, feedback := domain.SplitRecords(records)

	pre := make([]int, 0, len(intakes))
	for _, r := range intakes {
		if r.FeelingPre != nil {
			pre = append(pre, *r.FeelingPre)
		}
	}
	post := make([]int, 0, len(feedback))
	for _, r := range feedback {
		if r.FeelingPost != nil {
			post = append(post, *r.FeelingPost)
		}
	}

	result := m.Match(intakes, feedback)
	return Comparison{
		AvgPre:            analytics.Mean1(pre),
		AvgPost:           analytics.Mean1(post),
		AvgImprovement:    result.AvgImprovement,
		PreScoresCount:    len(pre),
		PostScoresCount:   len(post),
		MatchedPairsCount: result.MatchedPairs,
		Distribution:      Distributions{Pre: Distribution(pre), Post: Distribution(post)},
		Pairs:             result.Pairs,
	}
}
