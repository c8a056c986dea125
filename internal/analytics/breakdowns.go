package analytics

import (
	"sort"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// MaxHealthIssues bounds the health-issue chart
const MaxHealthIssues = 10

// HealthIssue is the frequency of one flagged condition
type HealthIssue struct {
	Issue      string `json:"issue"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// IntakeCount counts seated and table records
func IntakeCount(records []domain.Record) int {
	n := 0
	for _, r := range records {
		if r.Meta().FormType.IsIntake() {
			n++
		}
	}
	return n
}

// HealthIssues counts every health-check label occurrence, as a share of intakes.
// Returns the most frequent labels; ties keep first-seen order.
func HealthIssues(records []domain.Record) []HealthIssue {
	intakes := IntakeCount(records)
	index := make(map[string]int)
	issues := make([]HealthIssue, 0)

	for _, r := range records {
		intake, ok := r.(*domain.IntakeRecord)
		if !ok || len(intake.HealthChecks) == 0 {
			continue
		}
		for _, label := range intake.HealthChecks {
			i, ok := index[label]
			if !ok {
				i = len(issues)
				index[label] = i
				issues = append(issues, HealthIssue{Issue: label})
			}
			issues[i].Count++
		}
	}

	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Count > issues[b].Count
	})
	if len(issues) > MaxHealthIssues {
		issues = issues[:MaxHealthIssues]
	}
	for i := range issues {
		issues[i].Percentage = Percent(issues[i].Count, intakes)
	}
	return issues
}

// TherapistStats is one therapist's workload
type TherapistStats struct {
	Therapist      string  `json:"therapist"`
	SessionCount   int     `json:"sessionCount"`
	AvgFeelingPre  float64 `json:"avgFeelingPre"`
	AvgFeelingPost float64 `json:"avgFeelingPost"`
	FeedbackCount  int     `json:"feedbackCount"`
}

// Therapists groups every record by therapist, busiest first.
func Therapists(records []domain.Record) []TherapistStats {
	type group struct {
		stats TherapistStats
		pre   []int
		post  []int
	}
	index := make(map[string]int)
	groups := make([]*group, 0)

	for _, r := range records {
		name := r.Meta().TherapistName
		if name == "" {
			name = domain.UnknownTherapist
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, &group{stats: TherapistStats{Therapist: name}})
		}
		g := groups[i]
		g.stats.SessionCount++

		switch rec := r.(type) {
		case *domain.IntakeRecord:
			if rec.FeelingPre != nil {
				g.pre = append(g.pre, *rec.FeelingPre)
			}
		case *domain.FeedbackRecord:
			if rec.FeelingPost != nil {
				g.post = append(g.post, *rec.FeelingPost)
			}
		}
	}

	result := make([]TherapistStats, len(groups))
	for i, g := range groups {
		g.stats.AvgFeelingPre = Mean1(g.pre)
		g.stats.AvgFeelingPost = Mean1(g.post)
		g.stats.FeedbackCount = len(g.post)
		result[i] = g.stats
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].SessionCount > result[b].SessionCount
	})
	return result
}

// PressureShare is one pressure-preference bucket
type PressureShare struct {
	Preference domain.Pressure `json:"preference"`
	Count      int             `json:"count"`
	Percentage int             `json:"percentage"`
}

var pressureOrder = []domain.Pressure{
	domain.PressureLight,
	domain.PressureMedium,
	domain.PressureFirm,
	domain.PressureUnknown,
}

// PressurePreferences counts intake pressure choices; empty buckets are dropped.
func PressurePreferences(records []domain.Record) []PressureShare {
	counts := make(map[domain.Pressure]int, len(pressureOrder))
	intakes := 0
	for _, r := range records {
		intake, ok := r.(*domain.IntakeRecord)
		if !ok {
			continue
		}
		intakes++
		switch intake.Pressure {
		case domain.PressureLight, domain.PressureMedium, domain.PressureFirm:
			counts[intake.Pressure]++
		default:
			counts[domain.PressureUnknown]++
		}
	}

	shares := make([]PressureShare, 0, len(pressureOrder))
	for _, p := range pressureOrder {
		if counts[p] == 0 {
			continue
		}
		shares = append(shares, PressureShare{
			Preference: p,
			Count:      counts[p],
			Percentage: Percent(counts[p], intakes),
		})
	}
	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].Count > shares[b].Count
	})
	return shares
}
