// Package domaintest builds records for tests.
package domaintest

import (
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Base is an arbitrary fixed instant (a Tuesday) tests offset from.
var Base = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

// Score returns a pointer to a feeling score.
func Score(v int) *int {
	return &v
}

// IntakeOption customizes an intake record.
type IntakeOption func(*domain.IntakeRecord)

// FeedbackOption customizes a feedback record.
type FeedbackOption func(*domain.FeedbackRecord)

// Intake builds a seated intake submitted at when. A zero when leaves the date invalid.
func Intake(when time.Time, opts ...IntakeOption) *domain.IntakeRecord {
	r := &domain.IntakeRecord{
		Envelope: envelope(when, domain.FormTypeSeated),
		Pressure: domain.PressureUnknown,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Feedback builds a feedback record submitted at when. A zero when leaves the date invalid.
func Feedback(when time.Time, opts ...FeedbackOption) *domain.FeedbackRecord {
	r := &domain.FeedbackRecord{Envelope: envelope(when, domain.FormTypeFeedback)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func envelope(when time.Time, form domain.FormType) domain.Envelope {
	return domain.Envelope{
		SubmissionDate: when,
		DateValid:      !when.IsZero(),
		FormType:       form,
	}
}

// Table marks the intake as a table massage.
func Table() IntakeOption {
	return func(r *domain.IntakeRecord) { r.FormType = domain.FormTypeTable }
}

// Pre sets the pre-session feeling score.
func Pre(v int) IntakeOption {
	return func(r *domain.IntakeRecord) { r.FeelingPre = Score(v) }
}

// IntakeClient sets the client's name and mobile.
func IntakeClient(name, mobile string) IntakeOption {
	return func(r *domain.IntakeRecord) { r.Client.FullName, r.Client.Mobile = name, mobile }
}

// IntakeTherapist sets the assigned therapist.
func IntakeTherapist(name string) IntakeOption {
	return func(r *domain.IntakeRecord) { r.TherapistName = name }
}

// Pressure sets the pressure preference.
func Pressure(p domain.Pressure) IntakeOption {
	return func(r *domain.IntakeRecord) { r.Pressure = p }
}

// HealthChecks sets the flagged conditions.
func HealthChecks(labels ...string) IntakeOption {
	return func(r *domain.IntakeRecord) { r.HealthChecks = labels }
}

// Notes sets the review and avoid notes.
func Notes(review, avoid string) IntakeOption {
	return func(r *domain.IntakeRecord) { r.ReviewNote, r.AvoidNotes = review, avoid }
}

// Consent sets the consent and marketing flags.
func Consent(all, emailOptIn bool) IntakeOption {
	return func(r *domain.IntakeRecord) { r.ConsentAll, r.EmailOptIn = all, emailOptIn }
}

// Post sets the post-session feeling score.
func Post(v int) FeedbackOption {
	return func(r *domain.FeedbackRecord) { r.FeelingPost = Score(v) }
}

// FeedbackClient sets the client's name and mobile.
func FeedbackClient(name, mobile string) FeedbackOption {
	return func(r *domain.FeedbackRecord) { r.Client.FullName, r.Client.Mobile = name, mobile }
}

// FeedbackTherapist sets the rated therapist.
func FeedbackTherapist(name string) FeedbackOption {
	return func(r *domain.FeedbackRecord) { r.TherapistName = name }
}

// Recommend sets the would-recommend answer.
func Recommend(v domain.Recommendation) FeedbackOption {
	return func(r *domain.FeedbackRecord) { r.WouldRecommend = v }
}

// Comments sets the feedback comments.
func Comments(text string) FeedbackOption {
	return func(r *domain.FeedbackRecord) { r.Comments = text }
}

// Records converts concrete records to the interface slice.
func Records(rs ...domain.Record) []domain.Record {
	return rs
}
