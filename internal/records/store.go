package records

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
)

// Binding attaches a source to the form type assumed for documents that don't name one.
type Binding struct {
	Source      Source
	DefaultForm domain.FormType
}

// Intakes binds a source holding intake submissions.
func Intakes(src Source) Binding {
	return Binding{Source: src, DefaultForm: domain.FormTypeSeated}
}

// Feedback binds a source holding feedback submissions.
func Feedback(src Source) Binding {
	return Binding{Source: src, DefaultForm: domain.FormTypeFeedback}
}

// Store merges every configured source into one record snapshot.
// It implements domain.RecordLoader.
type Store struct {
	bindings []Binding
	log      *logrus.Logger
}

// NewStore creates a store reading the given sources in order.
func NewStore(logger *logrus.Logger, bindings ...Binding) *Store {
	return &Store{bindings: bindings, log: logger}
}

// LoadAll returns all records from all sources.
// Sources are read concurrently; records keep source order, then document order.
// A failing source contributes no records and is logged; a malformed document is
// skipped. Only context cancellation is reported as an error.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Record, error) {
	start := time.Now()

	batches := make([][]json.RawMessage, len(s.bindings))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range s.bindings {
		g.Go(func() error {
			docs, err := b.Source.Read(gctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.WithFields(logrus.Fields{
					"source": b.Source.Name(),
					"error":  err,
				}).Warn("Record source failed, continuing without it")
				return nil
			}
			batches[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := make([]domain.Record, 0)
	skipped := 0
	for i, b := range s.bindings {
		name := b.Source.Name()
		for j, doc := range batches[i] {
			rec, warnings, err := Decode(doc, b.DefaultForm)
			if err != nil {
				skipped++
				s.log.WithFields(logrus.Fields{
					"source": name,
					"index":  j,
					"error":  err,
				}).Warn("Skipping malformed record")
				continue
			}
			if len(warnings) > 0 {
				s.log.WithFields(logrus.Fields{
					"source":   name,
					"index":    j,
					"warnings": warnings,
				}).Warn("Record has unusable fields")
			}
			rec.Meta().Source = name
			all = append(all, rec)
		}
	}

	s.log.WithFields(logrus.Fields{
		"records":  len(all),
		"skipped":  skipped,
		"sources":  len(s.bindings),
		"duration": time.Since(start),
	}).Info("Loaded analytics records")

	return all, nil
}
