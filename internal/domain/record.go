package domain

import (
	"time"
)

// FormType identifies which form produced a record
type FormType string

const (
	FormTypeSeated   FormType = "seated"
	FormTypeTable    FormType = "table"
	FormTypeFeedback FormType = "feedback"
)

// IsIntake reports whether the form type is one of the intake variants
func (f FormType) IsIntake() bool {
	return f == FormTypeSeated || f == FormTypeTable
}

// Valid reports whether the form type is known
func (f FormType) Valid() bool {
	return f.IsIntake() || f == FormTypeFeedback
}

// Pressure is the massage pressure preference captured on intake
type Pressure string

const (
	PressureLight   Pressure = "Light"
	PressureMedium  Pressure = "Medium"
	PressureFirm    Pressure = "Firm"
	PressureUnknown Pressure = "Unknown"
)

// Recommendation is the feedback answer to "would you recommend us"
type Recommendation string

const (
	RecommendYes Recommendation = "Yes"
	RecommendNo  Recommendation = "No"
)

// Feeling scores are self-reported on a 1 to 10 scale
const (
	MinFeeling = 1
	MaxFeeling = 10
)

// UnknownTherapist labels records without an assigned therapist
const UnknownTherapist = "Unknown"

// Client holds the identity fields shared by every form.
// Empty strings mean the value was not supplied.
type Client struct {
	FullName string `json:"fullName,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
	Email    string `json:"email,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// Envelope carries the fields common to intake and feedback records
type Envelope struct {
	SubmissionDate time.Time `json:"submissionDate"`
	DateValid      bool      `json:"dateValid"` // false when submissionDate was missing or unparseable
	FormType       FormType  `json:"formType"`
	Client         Client    `json:"client"`
	TherapistName  string    `json:"therapistName,omitempty"`
	Source         string    `json:"source,omitempty"`
}

// Record is either an *IntakeRecord or a *FeedbackRecord
type Record interface {
	Meta() *Envelope
	isRecord()
}

// IntakeRecord is a pre-session intake form submission
type IntakeRecord struct {
	Envelope
	FeelingPre    *int     `json:"feelingPre,omitempty"`
	Pressure      Pressure `json:"pressure,omitempty"`
	HealthChecks  []string `json:"healthChecks,omitempty"`
	ReviewNote    string   `json:"reviewNote,omitempty"`
	AvoidNotes    string   `json:"avoidNotes,omitempty"`
	HasReviewNote bool     `json:"hasReviewNote,omitempty"`
	HasAvoidNotes bool     `json:"hasAvoidNotes,omitempty"`
	ConsentAll    bool     `json:"consentAll"`
	EmailOptIn    bool     `json:"emailOptIn"`
}

// FeedbackRecord is a post-session feedback form submission
type FeedbackRecord struct {
	Envelope
	FeelingPost    *int           `json:"feelingPost,omitempty"`
	WouldRecommend Recommendation `json:"wouldRecommend,omitempty"`
	Comments       string         `json:"comments,omitempty"`
	HasComments    bool           `json:"hasComments,omitempty"`
}

func (r *IntakeRecord) Meta() *Envelope   { return &r.Envelope }
func (r *FeedbackRecord) Meta() *Envelope { return &r.Envelope }

func (*IntakeRecord) isRecord()   {}
func (*FeedbackRecord) isRecord() {}

// HasHealthNotes reports whether the intake carries either kind of health note
func (r *IntakeRecord) HasHealthNotes() bool {
	return r.ReviewNote != "" || r.AvoidNotes != "" || r.HasReviewNote || r.HasAvoidNotes
}

// CommentsPresent reports whether the feedback carries comments
func (r *FeedbackRecord) CommentsPresent() bool {
	return r.HasComments || r.Comments != ""
}

// SplitRecords separates a mixed record list into its two variants, preserving order
func SplitRecords(records []Record) ([]*IntakeRecord, []*FeedbackRecord) {
	var intakes []*IntakeRecord
	var feedback []*FeedbackRecord
	for _, r := range records {
		switch rec := r.(type) {
		case *IntakeRecord:
			intakes = append(intakes, rec)
		case *FeedbackRecord:
			feedback = append(feedback, rec)
		}
	}
	return intakes, feedback
}
