package model

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Brownie44l1/cancer-api/internal/imaging"
	"github.com/cenkalti/backoff/v4"
)

type fakeFetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	errs  []error // consumed one per Fetch before files are consulted
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	data, ok := f.files[uri]
	if !ok {
		return nil, errors.New("not found: " + uri)
	}
	return data, nil
}

type fakeSession struct {
	output []float32
	err    error
	runs   atomic.Int32
	closed atomic.Bool
}

func (s *fakeSession) Run(imaging.Tensor) ([]float32, error) {
	s.runs.Add(1)
	return s.output, s.err
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func newTestEngine(session *fakeSession, fetcher *fakeFetcher) *Engine {
	return NewEngine(Config{ModelURL: "model.onnx"}, fetcher, func([]byte, Metadata) (Session, error) {
		return session, nil
	})
}

func inputTensor() imaging.Tensor {
	return imaging.Tensor{Shape: []int64{1, 224, 224, 3}, Data: make([]float32, 224*224*3)}
}

func TestEnginePredictBeforeLoad(t *testing.T) {
	session := &fakeSession{output: []float32{0.9}}
	engine := newTestEngine(session, &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}})

	if engine.Status() != Unloaded {
		t.Fatalf("initial status = %s", engine.Status())
	}
	if _, err := engine.Predict(inputTensor()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if session.runs.Load() != 0 {
		t.Fatalf("session must not run before load")
	}
}

func TestEngineLoadAndPredict(t *testing.T) {
	session := &fakeSession{output: []float32{0.8}}
	fetcher := &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}}
	engine := newTestEngine(session, fetcher)

	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if engine.Status() != Ready {
		t.Fatalf("status = %s, want ready", engine.Status())
	}
	score, err := engine.Predict(inputTensor())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if score < 0.79 || score > 0.81 {
		t.Fatalf("score = %v", score)
	}

	// Ready: further loads are no-ops.
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.calls)
	}
}

func TestEngineLoadFailureThenRetry(t *testing.T) {
	session := &fakeSession{output: []float32{0.1}}
	fetcher := &fakeFetcher{
		files: map[string][]byte{"model.onnx": {1}},
		errs:  []error{errors.New("network down")},
	}
	engine := newTestEngine(session, fetcher)

	if err := engine.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if engine.Status() != LoadFailed {
		t.Fatalf("status = %s, want load_failed", engine.Status())
	}
	if engine.LastError() == nil {
		t.Fatalf("expected last error to be recorded")
	}
	if _, err := engine.Predict(inputTensor()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady after failed load, got %v", err)
	}

	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("retry load: %v", err)
	}
	if engine.Status() != Ready || engine.LastError() != nil {
		t.Fatalf("expected ready with no error, got %s / %v", engine.Status(), engine.LastError())
	}
}

func TestEngineOpenerFailure(t *testing.T) {
	engine := NewEngine(Config{ModelURL: "model.onnx"},
		&fakeFetcher{files: map[string][]byte{"model.onnx": {1}}},
		func([]byte, Metadata) (Session, error) { return nil, errors.New("bad graph") })

	if err := engine.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if engine.Status() != LoadFailed {
		t.Fatalf("status = %s", engine.Status())
	}
}

func TestEngineLoadWithRetry(t *testing.T) {
	session := &fakeSession{output: []float32{0.3}}
	fetcher := &fakeFetcher{
		files: map[string][]byte{"model.onnx": {1}},
		errs:  []error{errors.New("one"), errors.New("two")},
	}
	engine := newTestEngine(session, fetcher)

	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5)
	if err := <-engine.LoadAsync(context.Background(), policy); err != nil {
		t.Fatalf("load async: %v", err)
	}
	if engine.Status() != Ready {
		t.Fatalf("status = %s", engine.Status())
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", fetcher.calls)
	}
}

func TestEngineLoadWithRetryGivesUp(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	engine := newTestEngine(&fakeSession{}, fetcher)

	err := engine.LoadWithRetry(context.Background(), backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1))
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if engine.Status() != LoadFailed {
		t.Fatalf("status = %s", engine.Status())
	}
}

func TestEngineMetadata(t *testing.T) {
	meta := []byte(`{"output_shape":[1,2],"score_index":1}`)
	session := &fakeSession{output: []float32{0.25, 0.75}}
	engine := NewEngine(Config{ModelURL: "model.onnx", MetadataURL: "meta.json"},
		&fakeFetcher{files: map[string][]byte{"model.onnx": {1}, "meta.json": meta}},
		func(_ []byte, m Metadata) (Session, error) {
			if m.ScoreIndex != 1 {
				t.Fatalf("opener got score index %d", m.ScoreIndex)
			}
			return session, nil
		})

	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if engine.Metadata().OutputShape[1] != 2 {
		t.Fatalf("metadata not applied: %+v", engine.Metadata())
	}
	score, err := engine.Predict(inputTensor())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if score != 0.75 {
		t.Fatalf("score = %v, want 0.75", score)
	}
}

func TestEnginePredictRejectsBadOutput(t *testing.T) {
	tests := map[string]*fakeSession{
		"above one": {output: []float32{1.5}},
		"negative":  {output: []float32{-0.1}},
		"empty":     {output: nil},
	}
	for name, session := range tests {
		engine := newTestEngine(session, &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}})
		if err := engine.Load(context.Background()); err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if _, err := engine.Predict(inputTensor()); !errors.Is(err, ErrInvalidScore) {
			t.Fatalf("%s: expected ErrInvalidScore, got %v", name, err)
		}
	}
}

func TestEnginePredictInputShapeMismatch(t *testing.T) {
	session := &fakeSession{output: []float32{0.5}}
	engine := newTestEngine(session, &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}})
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	small := imaging.Tensor{Shape: []int64{1, 2, 2, 3}, Data: make([]float32, 12)}
	if _, err := engine.Predict(small); !errors.Is(err, ErrInputShape) {
		t.Fatalf("expected ErrInputShape, got %v", err)
	}
	if session.runs.Load() != 0 {
		t.Fatalf("session must not run on mismatched input")
	}
}

func TestEngineSessionError(t *testing.T) {
	session := &fakeSession{err: errors.New("kernel failed")}
	engine := newTestEngine(session, &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}})
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := engine.Predict(inputTensor()); err == nil {
		t.Fatalf("expected inference error")
	}
}

func TestEngineConcurrentPredict(t *testing.T) {
	session := &fakeSession{output: []float32{0.6}}
	engine := newTestEngine(session, &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}})
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Predict(inputTensor()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent predict: %v", err)
	}
	if session.runs.Load() != 32 {
		t.Fatalf("runs = %d", session.runs.Load())
	}
}

func TestEngineClose(t *testing.T) {
	session := &fakeSession{output: []float32{0.6}}
	engine := newTestEngine(session, &fakeFetcher{files: map[string][]byte{"model.onnx": {1}}})
	if err := engine.Close(); err != nil {
		t.Fatalf("close before load: %v", err)
	}
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !session.closed.Load() || engine.Status() != Unloaded {
		t.Fatalf("expected closed session and unloaded engine")
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{Unloaded: "unloaded", Loading: "loading", Ready: "ready", LoadFailed: "load_failed"}
	for s, name := range want {
		if s.String() != name {
			t.Fatalf("%d.String() = %q", s, s.String())
		}
	}
}
