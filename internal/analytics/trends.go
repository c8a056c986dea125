package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Period selects the trend bucket width
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps a query value to a period.
// The dashboard sends 7, 30 or 90 (days shown); anything unrecognized is daily.
func ParsePeriod(s string) Period {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "7", "daily":
		return PeriodDaily
	case "30", "weekly":
		return PeriodWeekly
	case "90", "monthly":
		return PeriodMonthly
	}
	return PeriodDaily
}

// FormTypeCounts breaks a bucket down by form
type FormTypeCounts struct {
	Seated   int `json:"seated"`
	Table    int `json:"table"`
	Feedback int `json:"feedback"`
}

func (c *FormTypeCounts) add(f domain.FormType) {
	switch f {
	case domain.FormTypeSeated:
		c.Seated++
	case domain.FormTypeTable:
		c.Table++
	case domain.FormTypeFeedback:
		c.Feedback++
	}
}

// TrendBucket is one point on the submissions chart
type TrendBucket struct {
	Date      string         `json:"date"`
	Count     int            `json:"count"`
	FormTypes FormTypeCounts `json:"formTypes"`
}

// BucketKey returns the UTC bucket label for t.
// Weekly buckets start on the Sunday on or before t.
func BucketKey(t time.Time, period Period) string {
	t = t.UTC()
	switch period {
	case PeriodWeekly:
		return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
	case PeriodMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// Trends groups records with a valid submission date into buckets, oldest first.
func Trends(records []domain.Record, period Period) []TrendBucket {
	index := make(map[string]int)
	buckets := make([]TrendBucket, 0)

	for _, r := range records {
		env := r.Meta()
		if !env.DateValid {
			continue
		}
		key := BucketKey(env.SubmissionDate, period)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, TrendBucket{Date: key})
		}
		buckets[i].Count++
		buckets[i].FormTypes.add(env.FormType)
	}

	// ISO labels sort chronologically as strings
	sort.Slice(buckets, func(a, b int) bool {
		return buckets[a].Date < buckets[b].Date
	})
	return buckets
}
