package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// ErrMalformedRecord marks a stored record that cannot be used by any view
var ErrMalformedRecord = errors.New("malformed record")

// placeholderName is written by the submission path when no name was given
const placeholderName = "unknown"

// wireRecord mirrors the metadata JSON written by the form submission path.
// Sections are decoded one at a time so a malformed section only loses its own fields.
type wireRecord struct {
	SubmissionDate json.RawMessage `json:"submissionDate"`
	FormType       flexString      `json:"formType"`
	Client         json.RawMessage `json:"client"`
	AO             json.RawMessage `json:"ao"`
	Preferences    json.RawMessage `json:"preferences"`
	Health         json.RawMessage `json:"health"`
	Consent        json.RawMessage `json:"consent"`
	Marketing      json.RawMessage `json:"marketing"`
	Feedback       json.RawMessage `json:"feedback"`
}

type wireClient struct {
	FullName flexString `json:"fullName"`
	Mobile   flexString `json:"mobile"`
	Email    flexString `json:"email"`
	Gender   flexString `json:"gender"`
}

type wireAO struct {
	TherapistName flexString `json:"therapistName"`
	FeelingPre    flexInt    `json:"feelingPre"`
}

type wirePreferences struct {
	Pressure flexString `json:"pressure"`
}

type wireHealth struct {
	HealthChecks  flexStrings `json:"healthChecks"`
	ReviewNote    flexString  `json:"reviewNote"`
	AvoidNotes    flexString  `json:"avoidNotes"`
	HasReviewNote flexBool    `json:"hasReviewNote"`
	HasAvoidNotes flexBool    `json:"hasAvoidNotes"`
}

type wireConsent struct {
	ConsentAll flexBool `json:"consentAll"`
}

type wireMarketing struct {
	EmailOptIn flexBool `json:"emailOptIn"`
}

type wireFeedback struct {
	FeelingPost    flexInt    `json:"feelingPost"`
	WouldRecommend flexString `json:"wouldRecommend"`
	Comments       flexString `json:"comments"`
	HasComments    flexBool   `json:"hasComments"`
}

// flexString accepts strings, numbers (kept as written) and null
type flexString struct {
	Value   string
	Invalid bool
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	f.Value, f.Invalid = "", false
	if isNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err == nil {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = n.String()
		return nil
	}
	f.Invalid = true
	return nil
}

// flexInt accepts numbers, numeric strings and null
type flexInt struct {
	Value   *int
	Invalid bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	f.Value, f.Invalid = nil, false
	if isNull(data) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			f.Invalid = true
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f.Invalid = true
			return nil
		}
		n = parsed
	}

	if n != math.Trunc(n) {
		f.Invalid = true
		return nil
	}
	v := int(n)
	f.Value = &v
	return nil
}

// flexBool accepts booleans and HTML checkbox values ("on")
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "true", "yes", "1":
			*b = true
			return nil
		}
	}
	*b = false
	return nil
}

// flexStrings accepts a list of labels or a single label
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	*s = nil
	if isNull(data) {
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one = strings.TrimSpace(one); one != "" {
			*s = flexStrings{one}
		}
		return nil
	}
	var many []interface{}
	if err := json.Unmarshal(data, &many); err != nil {
		return nil
	}
	for _, item := range many {
		label, ok := item.(string)
		if !ok {
			continue
		}
		if label = strings.TrimSpace(label); label != "" {
			*s = append(*s, label)
		}
	}
	return nil
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// dateLayouts are tried in order for string submission dates
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseSubmissionDate accepts ISO-8601 strings and epoch milliseconds
func parseSubmissionDate(raw json.RawMessage) (time.Time, bool) {
	if isNull(raw) {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

// Decode converts one stored JSON document into a typed record.
// hint supplies the form type when the document does not carry one.
// Field-level problems are returned as warnings and the field is treated as absent;
// an error means the whole record is unusable.
func Decode(raw json.RawMessage, hint domain.FormType) (domain.Record, []string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, fmt.Errorf("%w: not a JSON object", ErrMalformedRecord)
	}

	var w wireRecord
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if w.FormType.Invalid {
		return nil, nil, fmt.Errorf("%w: formType is not a string", ErrMalformedRecord)
	}
	formType := domain.FormType(strings.ToLower(strings.TrimSpace(w.FormType.Value)))
	if formType == "" {
		formType = hint
	}
	if !formType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown formType %q", ErrMalformedRecord, w.FormType.Value)
	}

	var warnings []string
	env := domain.Envelope{FormType: formType}
	env.SubmissionDate, env.DateValid = parseSubmissionDate(w.SubmissionDate)
	if !env.DateValid {
		warnings = append(warnings, "invalid submissionDate")
	}

	var client wireClient
	if section(w.Client, "client", &client, &warnings) {
		env.Client = domain.Client{
			FullName: clientName(text(client.FullName, "client.fullName", &warnings)),
			Mobile:   text(client.Mobile, "client.mobile", &warnings),
			Email:    text(client.Email, "client.email", &warnings),
			Gender:   text(client.Gender, "client.gender", &warnings),
		}
	}
	var ao wireAO
	hasAO := section(w.AO, "ao", &ao, &warnings)
	if hasAO {
		env.TherapistName = text(ao.TherapistName, "ao.therapistName", &warnings)
	}

	if formType == domain.FormTypeFeedback {
		rec := &domain.FeedbackRecord{Envelope: env}
		var fb wireFeedback
		if section(w.Feedback, "feedback", &fb, &warnings) {
			rec.FeelingPost = feeling(fb.FeelingPost, "feelingPost", &warnings)
			rec.WouldRecommend = recommendation(text(fb.WouldRecommend, "feedback.wouldRecommend", &warnings))
			rec.Comments = text(fb.Comments, "feedback.comments", &warnings)
			rec.HasComments = bool(fb.HasComments)
		}
		return rec, warnings, nil
	}

	rec := &domain.IntakeRecord{Envelope: env, Pressure: domain.PressureUnknown}
	if hasAO {
		rec.FeelingPre = feeling(ao.FeelingPre, "feelingPre", &warnings)
	}
	var prefs wirePreferences
	if section(w.Preferences, "preferences", &prefs, &warnings) {
		rec.Pressure = pressure(text(prefs.Pressure, "preferences.pressure", &warnings))
	}
	var health wireHealth
	if section(w.Health, "health", &health, &warnings) {
		rec.HealthChecks = []string(health.HealthChecks)
		rec.ReviewNote = text(health.ReviewNote, "health.reviewNote", &warnings)
		rec.AvoidNotes = text(health.AvoidNotes, "health.avoidNotes", &warnings)
		rec.HasReviewNote = bool(health.HasReviewNote)
		rec.HasAvoidNotes = bool(health.HasAvoidNotes)
	}
	var consent wireConsent
	if section(w.Consent, "consent", &consent, &warnings) {
		rec.ConsentAll = bool(consent.ConsentAll)
	}
	var marketing wireMarketing
	if section(w.Marketing, "marketing", &marketing, &warnings) {
		rec.EmailOptIn = bool(marketing.EmailOptIn)
	}
	return rec, warnings, nil
}

// section decodes one nested object. A section that is not an object is
// reported and treated as absent.
func section(raw json.RawMessage, name string, dst interface{}, warnings *[]string) bool {
	if isNull(raw) {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		*warnings = append(*warnings, "unusable "+name)
		return false
	}
	return true
}

func text(f flexString, field string, warnings *[]string) string {
	if f.Invalid {
		*warnings = append(*warnings, "unusable "+field)
		return ""
	}
	return strings.TrimSpace(f.Value)
}

func clientName(name string) string {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, placeholderName) {
		return ""
	}
	return name
}

func feeling(f flexInt, field string, warnings *[]string) *int {
	if f.Invalid {
		*warnings = append(*warnings, "non-numeric "+field)
		return nil
	}
	if f.Value == nil {
		return nil
	}
	if *f.Value < domain.MinFeeling || *f.Value > domain.MaxFeeling {
		*warnings = append(*warnings, fmt.Sprintf("%s out of range: %d", field, *f.Value))
		return nil
	}
	return f.Value
}

func pressure(value string) domain.Pressure {
	for _, p := range []domain.Pressure{domain.PressureLight, domain.PressureMedium, domain.PressureFirm} {
		if strings.EqualFold(value, string(p)) {
			return p
		}
	}
	return domain.PressureUnknown
}

func recommendation(value string) domain.Recommendation {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes":
		return domain.RecommendYes
	case "no":
		return domain.RecommendNo
	}
	return ""
}

// SplitDocument splits a stored JSON document holding either an array of records
// or a single record object into individual raw records.
func SplitDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || isNull(trimmed) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decoding record array: %w", err)
		}
		out := items[:0]
		for _, item := range items {
			if !isNull(item) {
				out = append(out, item)
			}
		}
		return out, nil
	case '{':
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("decoding record object: invalid JSON")
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	default:
		return nil, fmt.Errorf("decoding records: expected array or object")
	}
}
