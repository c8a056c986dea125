package analytics

import (
	"sort"
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Suggestion thresholds, in percent
const (
	MinCommentRate     = 50
	MinMobileRate      = 80
	MinFeelingPostRate = 80
)

// DataQuality reports how completely forms are being filled in
type DataQuality struct {
	TotalRecords    int      `json:"totalRecords"`
	ValidDateRate   int      `json:"validDateRate"`
	MobileRate      int      `json:"mobileRate"`
	EmailRate       int      `json:"emailRate"`
	CommentsRate    int      `json:"commentsRate"`
	HealthNotesRate int      `json:"healthNotesRate"`
	FeelingPostRate int      `json:"feelingPostRate"`
	Suggestions     []string `json:"suggestions"`
}

// DataQualityMetrics measures field completeness across records.
// Feeling-post completeness is measured over feedback records only.
func DataQualityMetrics(records []domain.Record) DataQuality {
	var validDates, mobiles, emails, comments, notes, intakes, feedback, posts int

	for _, r := range records {
		env := r.Meta()
		if env.DateValid {
			validDates++
		}
		if env.Client.Mobile != "" {
			mobiles++
		}
		if env.Client.Email != "" {
			emails++
		}
		switch rec := r.(type) {
		case *domain.IntakeRecord:
			intakes++
			if rec.HasHealthNotes() {
				notes++
			}
		case *domain.FeedbackRecord:
			feedback++
			if rec.CommentsPresent() {
				comments++
			}
			if rec.FeelingPost != nil {
				posts++
			}
		}
	}

	total := len(records)
	q := DataQuality{
		TotalRecords:    total,
		ValidDateRate:   Percent(validDates, total),
		MobileRate:      Percent(mobiles, total),
		EmailRate:       Percent(emails, total),
		CommentsRate:    Percent(comments, total),
		HealthNotesRate: Percent(notes, total),
		FeelingPostRate: Percent(posts, feedback),
		Suggestions:     make([]string, 0),
	}
	if total == 0 {
		return q
	}

	if q.CommentsRate < MinCommentRate {
		q.Suggestions = append(q.Suggestions, "Low comment capture rate: prompt clients for feedback comments")
	}
	if q.MobileRate < MinMobileRate {
		q.Suggestions = append(q.Suggestions, "Mobile numbers are often missing: feedback matching relies on them")
	}
	if q.ValidDateRate < 100 {
		q.Suggestions = append(q.Suggestions, "Some records have missing or invalid submission dates")
	}
	if feedback > 0 && q.FeelingPostRate < MinFeelingPostRate {
		q.Suggestions = append(q.Suggestions, "Post-session feeling scores are often skipped")
	}
	if intakes > 0 && notes == 0 {
		q.Suggestions = append(q.Suggestions, "No health notes recorded: check the intake health section is being completed")
	}
	return q
}

// MaxDigestNotes bounds each list in the health-notes digest
const MaxDigestNotes = 5

// HealthNote is one free-text note with its context
type HealthNote struct {
	Note      string `json:"note"`
	Date      string `json:"date,omitempty"`
	Therapist string `json:"therapist"`
	at        time.Time
	valid     bool
}

// HealthNotesDigest lists the most recent notes of each kind
type HealthNotesDigest struct {
	ReviewNotes      []HealthNote `json:"reviewNotes"`
	AvoidNotes       []HealthNote `json:"avoidNotes"`
	TotalReviewNotes int          `json:"totalReviewNotes"`
	TotalAvoidNotes  int          `json:"totalAvoidNotes"`
}

// HealthNotes collects the newest review and avoid notes.
// Totals count intakes flagged with a note even when the text itself was not kept.
func HealthNotes(records []domain.Record) HealthNotesDigest {
	digest := HealthNotesDigest{
		ReviewNotes: make([]HealthNote, 0),
		AvoidNotes:  make([]HealthNote, 0),
	}

	for _, r := range records {
		intake, ok := r.(*domain.IntakeRecord)
		if !ok {
			continue
		}
		if intake.ReviewNote != "" || intake.HasReviewNote {
			digest.TotalReviewNotes++
		}
		if intake.AvoidNotes != "" || intake.HasAvoidNotes {
			digest.TotalAvoidNotes++
		}
		if intake.ReviewNote != "" {
			digest.ReviewNotes = append(digest.ReviewNotes, newHealthNote(intake, intake.ReviewNote))
		}
		if intake.AvoidNotes != "" {
			digest.AvoidNotes = append(digest.AvoidNotes, newHealthNote(intake, intake.AvoidNotes))
		}
	}

	digest.ReviewNotes = newest(digest.ReviewNotes)
	digest.AvoidNotes = newest(digest.AvoidNotes)
	return digest
}

func newHealthNote(intake *domain.IntakeRecord, text string) HealthNote {
	note := HealthNote{
		Note:      text,
		Therapist: intake.TherapistName,
		at:        intake.SubmissionDate,
		valid:     intake.DateValid,
	}
	if note.Therapist == "" {
		note.Therapist = domain.UnknownTherapist
	}
	if intake.DateValid {
		note.Date = intake.SubmissionDate.UTC().Format("2006-01-02")
	}
	return note
}

// newest orders notes newest first, undated last, and keeps MaxDigestNotes
func newest(notes []HealthNote) []HealthNote {
	sort.SliceStable(notes, func(a, b int) bool {
		if notes[a].valid != notes[b].valid {
			return notes[a].valid
		}
		return notes[a].at.After(notes[b].at)
	})
	if len(notes) > MaxDigestNotes {
		notes = notes[:MaxDigestNotes]
	}
	return notes
}
