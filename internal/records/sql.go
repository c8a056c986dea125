package records

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Kind names the logical collection a stored submission belongs to.
type Kind string

const (
	KindIntake   Kind = "intake"
	KindFeedback Kind = "feedback"
)

// ParseKind accepts "intake", "intakes", "feedback".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intake", "intakes":
		return KindIntake, nil
	case "feedback":
		return KindFeedback, nil
	}
	return "", domain.NewValidationError("kind", "must be intake or feedback", s)
}

// DefaultForm is the form type assumed for documents of this kind without one.
func (k Kind) DefaultForm() domain.FormType {
	if k == KindFeedback {
		return domain.FormTypeFeedback
	}
	return domain.FormTypeSeated
}

// Export is the JSON export format shared by every SQL backend.
type Export struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
	Intakes    []json.RawMessage `json:"intakes"`
	Feedback   []json.RawMessage `json:"feedback"`
}

const exportVersion = "1.0"

// dialect captures the differences between the SQL backends.
type dialect struct {
	name string
	// numbered reports whether placeholders are $1, $2, ... instead of ?
	numbered bool
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps raw submissions in a single "submissions" table.
// The payload column holds the document exactly as submitted; duplicates are
// detected by a checksum of the compacted payload.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Source returns a record source reading the submissions of one kind.
func (s *SQLStore) Source(kind Kind) Source {
	return &sqlSource{store: s, kind: kind}
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Append stores one raw document under kind.
// It returns false without error when an identical document is already stored.
// Documents that cannot be decoded into a record are rejected.
func (s *SQLStore) Append(ctx context.Context, kind Kind, raw json.RawMessage) (bool, error) {
	rec, _, err := Decode(raw, kind.DefaultForm())
	if err != nil {
		return false, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	sum := sha256.Sum256(compact.Bytes())

	var submittedAt sql.NullTime
	if env := rec.Meta(); env.DateValid {
		submittedAt = sql.NullTime{Time: env.SubmissionDate, Valid: true}
	}

	query := s.dialect.rebind(`
		INSERT INTO submissions (kind, form_type, submitted_at, payload, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (checksum) DO NOTHING
	`)
	result, err := s.db.ExecContext(ctx, query,
		string(kind),
		string(rec.Meta().FormType),
		submittedAt,
		compact.String(),
		hex.EncodeToString(sum[:]),
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// ImportDocument stores every record of a master JSON document (array or single object).
// Malformed and duplicate records are counted as skipped.
func (s *SQLStore) ImportDocument(ctx context.Context, kind Kind, data []byte) (imported int, skipped int, err error) {
	docs, err := SplitDocument(data)
	if err != nil {
		return 0, 0, err
	}
	return s.appendAll(ctx, kind, docs)
}

func (s *SQLStore) appendAll(ctx context.Context, kind Kind, docs []json.RawMessage) (imported int, skipped int, err error) {
	for _, doc := range docs {
		added, err := s.Append(ctx, kind, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return imported, skipped, ctxErr
			}
			if errors.Is(err, ErrMalformedRecord) {
				skipped++
				continue
			}
			return imported, skipped, err
		}
		if added {
			imported++
		} else {
			skipped++
		}
	}
	return imported, skipped, nil
}

// Count returns the number of stored submissions per kind.
func (s *SQLStore) Count(ctx context.Context) (map[Kind]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM submissions GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	counts := map[Kind]int64{KindIntake: 0, KindFeedback: 0}
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[Kind(kind)] = n
	}
	return counts, rows.Err()
}

func (s *SQLStore) payloads(ctx context.Context, kind Kind) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind("SELECT payload FROM submissions WHERE kind = ? ORDER BY id"),
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		docs = append(docs, json.RawMessage(payload))
	}
	return docs, rows.Err()
}

// ExportJSON writes every stored submission to writer.
func (s *SQLStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	intakes, err := s.payloads(ctx, KindIntake)
	if err != nil {
		return fmt.Errorf("failed to list intakes: %w", err)
	}
	feedback, err := s.payloads(ctx, KindFeedback)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(intakes) + len(feedback),
		Intakes:    nonNil(intakes),
		Feedback:   nonNil(feedback),
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON reads an export produced by ExportJSON.
// Returns the number of imported and skipped submissions.
func (s *SQLStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	in, sk, err := s.appendAll(ctx, KindIntake, export.Intakes)
	imported, skipped = in, sk
	if err != nil {
		return imported, skipped, err
	}
	in, sk, err = s.appendAll(ctx, KindFeedback, export.Feedback)
	return imported + in, skipped + sk, err
}

// Close closes the store and releases resources.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type sqlSource struct {
	store *SQLStore
	kind  Kind
}

func (s *sqlSource) Name() string {
	return s.store.dialect.name + ":" + string(s.kind)
}

func (s *sqlSource) Read(ctx context.Context) ([]json.RawMessage, error) {
	return s.store.payloads(ctx, s.kind)
}

func nonNil(docs []json.RawMessage) []json.RawMessage {
	if docs == nil {
		return []json.RawMessage{}
	}
	return docs
}
