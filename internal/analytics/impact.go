package analytics

import (
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// NoTherapist labels the summary when there are no records
const NoTherapist = "N/A"

// PairingStats carries the matching results the summary needs
type PairingStats struct {
	AvgImprovement float64
	MatchedPairs   int
}

// Impact is the headline summary for the dashboard
type Impact struct {
	TotalSubmissions     int       `json:"totalSubmissions"`
	TotalIntakes         int       `json:"totalIntakes"`
	TotalFeedback        int       `json:"totalFeedback"`
	ConsentRate          int       `json:"consentRate"`
	EmailOptInRate       int       `json:"emailOptInRate"`
	RecommendationRate   int       `json:"recommendationRate"`
	AvgImprovement       float64   `json:"avgImprovement"`
	MatchedFeedbackRate  int       `json:"matchedFeedbackRate"`
	TopTherapist         string    `json:"topTherapist"`
	TopTherapistSessions int       `json:"topTherapistSessions"`
	WeekOverWeekChange   int       `json:"weekOverWeekChange"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

// OverallImpact composes the summary from the other views.
func OverallImpact(records []domain.Record, pairing PairingStats, now time.Time) Impact {
	var intakes, feedback, consent, optIn, recommend int
	for _, r := range records {
		switch rec := r.(type) {
		case *domain.IntakeRecord:
			intakes++
			if rec.ConsentAll {
				consent++
			}
			if rec.EmailOptIn {
				optIn++
			}
		case *domain.FeedbackRecord:
			feedback++
			if rec.WouldRecommend == domain.RecommendYes {
				recommend++
			}
		}
	}

	impact := Impact{
		TotalSubmissions:   len(records),
		TotalIntakes:       intakes,
		TotalFeedback:      feedback,
		ConsentRate:        Percent(consent, intakes),
		EmailOptInRate:     Percent(optIn, intakes),
		RecommendationRate: Percent(recommend, feedback),
		AvgImprovement:     pairing.AvgImprovement,
		TopTherapist:       NoTherapist,
		WeekOverWeekChange: WeekOverWeek(Trends(records, PeriodDaily)),
		LastUpdated:        now.UTC(),
	}
	if intakes > 0 {
		impact.MatchedFeedbackRate = Percent(pairing.MatchedPairs, intakes)
	}
	if therapists := Therapists(records); len(therapists) > 0 {
		impact.TopTherapist = therapists[0].Therapist
		impact.TopTherapistSessions = therapists[0].SessionCount
	}
	return impact
}

// WeekOverWeek compares the last seven daily buckets with up to seven before them.
// Fewer than seven buckets yields 0. The result is a signed percentage.
func WeekOverWeek(daily []TrendBucket) int {
	if len(daily) > 14 {
		daily = daily[len(daily)-14:]
	}
	if len(daily) < 7 {
		return 0
	}
	split := len(daily) - 7
	prior, recent := 0, 0
	for i, b := range daily {
		if i < split {
			prior += b.Count
		} else {
			recent += b.Count
		}
	}
	denominator := prior
	if denominator < 1 {
		denominator = 1
	}
	return Round(float64(recent-prior) / float64(denominator) * 100)
}
