// Package prediction runs the predict flow (normalize, infer, classify,
// persist) and serves the prediction history.
package prediction

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Brownie44l1/cancer-api/internal/imaging"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/google/uuid"
)

type Model interface {
	Status() model.State
	Predict(input imaging.Tensor) (float64, error)
}

type Normalizer interface {
	Normalize(raw []byte) (imaging.Tensor, error)
}

// Repository persists records. Save must be atomic and must not replace an
// existing id. Failures are reported as *PersistenceError.
type Repository interface {
	Save(ctx context.Context, r Record) error
	ListAll(ctx context.Context) ([]Record, error)
}

type Service struct {
	model      Model
	normalizer Normalizer
	repo       Repository
	newID      func() string
	now        func() time.Time
}

type Option func(*Service)

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

func NewService(m Model, n Normalizer, repo Repository, opts ...Option) *Service {
	s := &Service{
		model:      m,
		normalizer: n,
		repo:       repo,
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandlePredict classifies one image and persists the result. The record is
// returned only if it was saved.
func (s *Service) HandlePredict(ctx context.Context, image []byte) (Record, error) {
	if s.model.Status() != model.Ready {
		return Record{}, ErrModelNotReady
	}
	if len(image) == 0 {
		return Record{}, ErrMissingInput
	}

	tensor, err := s.normalizer.Normalize(image)
	if err != nil {
		return Record{}, s.fail(StageNormalizing, err)
	}

	score, err := s.model.Predict(tensor)
	if errors.Is(err, model.ErrNotReady) {
		// Unloaded between the readiness check and inference.
		return Record{}, ErrModelNotReady
	}
	if err != nil {
		return Record{}, s.fail(StageInferring, err)
	}

	record := NewRecord(s.newID(), score, s.now())
	if err := s.repo.Save(ctx, record); err != nil {
		return Record{}, s.fail(StagePersisting, persistenceError("save", err))
	}

	log.Printf("Prediction %s: %s (score %.4f)", record.ID, record.Result, score)
	return record, nil
}

// HandleHistory returns every stored record in the history response shape.
func (s *Service) HandleHistory(ctx context.Context) ([]HistoryEntry, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		err = persistenceError("list", err)
		log.Printf("History lookup failed: %v", err)
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, NewHistoryEntry(r))
	}
	return entries, nil
}

func (s *Service) fail(stage Stage, err error) error {
	log.Printf("Prediction error (%s): %v", stage, err)
	return &PredictionError{Stage: stage, Err: err}
}
