// Package model owns the classification model: fetching its artifact, the
// load lifecycle and single-call inference.
package model

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Brownie44l1/cancer-api/internal/imaging"
	"github.com/cenkalti/backoff/v4"
)

// Session runs one forward pass. Implementations must allow concurrent Run.
type Session interface {
	Run(input imaging.Tensor) ([]float32, error)
	Close() error
}

// Opener builds a Session from a fetched model artifact.
type Opener func(modelData []byte, meta Metadata) (Session, error)

type Config struct {
	ModelURL    string
	MetadataURL string
}

type loaded struct {
	session Session
	meta    Metadata
}

// Engine is the load-once, read-many model handle. Load is the only writer of
// its state; Predict and Status never block on a load in progress.
type Engine struct {
	cfg     Config
	fetcher Fetcher
	open    Opener

	mu      sync.Mutex
	state   atomic.Int32
	current atomic.Pointer[loaded]

	errMu   sync.Mutex
	lastErr error
}

func NewEngine(cfg Config, fetcher Fetcher, open Opener) *Engine {
	return &Engine{cfg: cfg, fetcher: fetcher, open: open}
}

func (e *Engine) Status() State {
	return State(e.state.Load())
}

// Metadata returns the metadata of the loaded model, or the defaults before
// the first successful load.
func (e *Engine) Metadata() Metadata {
	if l := e.current.Load(); l != nil {
		return l.meta
	}
	return DefaultMetadata()
}

// LastError is the error of the most recent failed load, nil after success.
func (e *Engine) LastError() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErr
}

// Load fetches and opens the model. It is a no-op once the engine is Ready
// and may be called again after a failure.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Status() == Ready {
		return nil
	}
	e.state.Store(int32(Loading))
	log.Printf("Loading model from: %s", e.cfg.ModelURL)

	l, err := e.load(ctx)
	if err != nil {
		e.setLastError(err)
		e.state.Store(int32(LoadFailed))
		log.Printf("Model load failed: %v", err)
		return err
	}

	e.current.Store(l)
	e.setLastError(nil)
	e.state.Store(int32(Ready))
	log.Printf("Model ready: %s %v -> %s %v", l.meta.InputName, l.meta.InputShape, l.meta.OutputName, l.meta.OutputShape)
	return nil
}

func (e *Engine) load(ctx context.Context) (*loaded, error) {
	meta := DefaultMetadata()
	if e.cfg.MetadataURL != "" {
		raw, err := e.fetcher.Fetch(ctx, e.cfg.MetadataURL)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata: %w", err)
		}
		if meta, err = ParseMetadata(raw); err != nil {
			return nil, err
		}
	}

	modelData, err := e.fetcher.Fetch(ctx, e.cfg.ModelURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model: %w", err)
	}
	session, err := e.open(modelData, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to create model session: %w", err)
	}
	return &loaded{session: session, meta: meta}, nil
}

// LoadWithRetry retries Load under the given policy until it succeeds, the
// policy gives up, or ctx is done. A nil policy means a single attempt.
func (e *Engine) LoadWithRetry(ctx context.Context, policy backoff.BackOff) error {
	if policy == nil {
		return e.Load(ctx)
	}
	return backoff.RetryNotify(func() error {
		return e.Load(ctx)
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		log.Printf("Retrying model load in %s: %v", wait, err)
	})
}

// LoadAsync runs LoadWithRetry in the background. The channel receives the
// final result and is then closed.
func (e *Engine) LoadAsync(ctx context.Context, policy backoff.BackOff) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- e.LoadWithRetry(ctx, policy)
	}()
	return done
}

// Predict runs the model once and returns the confidence score in [0,1].
func (e *Engine) Predict(input imaging.Tensor) (float64, error) {
	l := e.current.Load()
	if e.Status() != Ready || l == nil {
		return 0, ErrNotReady
	}

	if want := elements(l.meta.InputShape); want > 0 && input.Elements() != want {
		return 0, fmt.Errorf("%w: got %v, want %v", ErrInputShape, input.Shape, l.meta.InputShape)
	}

	output, err := l.session.Run(input)
	if err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	if l.meta.ScoreIndex >= len(output) {
		return 0, fmt.Errorf("%w: output has %d values, score index %d", ErrInvalidScore, len(output), l.meta.ScoreIndex)
	}

	score := float64(output[l.meta.ScoreIndex])
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}
	return score, nil
}

// Close releases the session and returns the engine to Unloaded.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Store(int32(Unloaded))
	l := e.current.Swap(nil)
	if l == nil {
		return nil
	}
	return l.session.Close()
}

func (e *Engine) setLastError(err error) {
	e.errMu.Lock()
	e.lastErr = err
	e.errMu.Unlock()
}
