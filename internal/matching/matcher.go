// Package matching pairs intake forms with the feedback left after the same
// session. The two forms share no key, so pairs are inferred from client
// identity, therapist and time proximity.
package matching

import (
	"sort"
	"strings"
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/analytics"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Pair is one accepted intake/feedback pairing. Indices refer to the slices
// passed to Match.
type Pair struct {
	Intake      int `json:"intake"`
	Feedback    int `json:"feedback"`
	Score       int `json:"score"`
	Improvement int `json:"improvement"`
}

// Result summarizes a matching run
type Result struct {
	AvgImprovement float64 `json:"avgImprovement"`
	MatchedPairs   int     `json:"matchedPairs"`
	Pairs          []Pair  `json:"pairs"`
}

// Stats converts the result into what the summary view needs
func (r Result) Stats() analytics.PairingStats {
	return analytics.PairingStats{AvgImprovement: r.AvgImprovement, MatchedPairs: r.MatchedPairs}
}

// Matcher applies a fixed pairing policy
type Matcher struct {
	config domain.MatchingConfig
}

// New creates a matcher. Zero fields in config take the default policy.
func New(config domain.MatchingConfig) *Matcher {
	def := domain.DefaultMatchingConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.NearWindow <= 0 {
		config.NearWindow = def.NearWindow
	}
	if config.MobileScore == 0 {
		config.MobileScore = def.MobileScore
	}
	if config.NameScore == 0 {
		config.NameScore = def.NameScore
	}
	if config.TherapistScore == 0 {
		config.TherapistScore = def.TherapistScore
	}
	if config.NearScore == 0 {
		config.NearScore = def.NearScore
	}
	if config.AcceptScore == 0 {
		config.AcceptScore = def.AcceptScore
	}
	return &Matcher{config: config}
}

// Config returns the effective policy
func (m *Matcher) Config() domain.MatchingConfig {
	return m.config
}

type timedFeedback struct {
	at    time.Time
	index int
}

// Match pairs every scored intake with its best feedback candidate.
// Each intake is judged independently, so one feedback record may pair with
// several intakes. Equal scores keep the candidate that came first in feedback.
func (m *Matcher) Match(intakes []*domain.IntakeRecord, feedback []*domain.FeedbackRecord) Result {
	byTime := make([]timedFeedback, 0, len(feedback))
	for i, f := range feedback {
		if f.DateValid {
			byTime = append(byTime, timedFeedback{at: f.SubmissionDate, index: i})
		}
	}
	sort.SliceStable(byTime, func(a, b int) bool {
		return byTime[a].at.Before(byTime[b].at)
	})

	result := Result{Pairs: make([]Pair, 0)}
	total := 0
	for i, intake := range intakes {
		if intake.FeelingPre == nil || !intake.DateValid {
			continue
		}

		from := intake.SubmissionDate.Add(-m.config.Window)
		to := intake.SubmissionDate.Add(m.config.Window)
		start := sort.Search(len(byTime), func(k int) bool {
			return !byTime[k].at.Before(from)
		})

		best, bestScore := -1, 0
		for k := start; k < len(byTime) && !byTime[k].at.After(to); k++ {
			j := byTime[k].index
			score := m.Score(intake, feedback[j])
			if best < 0 || score > bestScore || (score == bestScore && j < best) {
				best, bestScore = j, score
			}
		}
		if best < 0 || bestScore < m.config.AcceptScore || feedback[best].FeelingPost == nil {
			continue
		}

		improvement := *feedback[best].FeelingPost - *intake.FeelingPre
		total += improvement
		result.Pairs = append(result.Pairs, Pair{
			Intake:      i,
			Feedback:    best,
			Score:       bestScore,
			Improvement: improvement,
		})
	}

	result.MatchedPairs = len(result.Pairs)
	if result.MatchedPairs > 0 {
		result.AvgImprovement = analytics.Round1(float64(total) / float64(result.MatchedPairs))
	}
	return result
}

// Score rates how likely f is the feedback for intake. Mobile and name are
// alternatives: a name only counts when the mobiles do not match.
func (m *Matcher) Score(intake *domain.IntakeRecord, f *domain.FeedbackRecord) int {
	score := 0
	a, b := intake.Client, f.Client
	switch {
	case a.Mobile != "" && b.Mobile != "" && a.Mobile == b.Mobile:
		score += m.config.MobileScore
	case a.FullName != "" && b.FullName != "" && strings.EqualFold(a.FullName, b.FullName):
		score += m.config.NameScore
	}
	if intake.TherapistName != "" && f.TherapistName != "" && intake.TherapistName == f.TherapistName {
		score += m.config.TherapistScore
	}
	if intake.DateValid && f.DateValid && absDuration(f.SubmissionDate.Sub(intake.SubmissionDate)) < m.config.NearWindow {
		score += m.config.NearScore
	}
	return score
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
