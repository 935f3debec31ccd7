package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Brownie44l1/cancer-api/internal/imaging"
)

var (
	ErrNotReady     = errors.New("model is not ready")
	ErrInvalidScore = errors.New("model returned an invalid score")
	ErrInputShape   = errors.New("input tensor does not match model input")
)

// State is the lifecycle of the process-wide model handle.
type State int32

const (
	Unloaded State = iota
	Loading
	Ready
	LoadFailed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case LoadFailed:
		return "load_failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Metadata describes the model's input and output tensors. It is read from an
// optional JSON document shipped next to the model artifact.
type Metadata struct {
	InputName   string         `json:"input_name"`
	OutputName  string         `json:"output_name"`
	InputShape  []int64        `json:"input_shape"`
	OutputShape []int64        `json:"output_shape"`
	ImageSize   int            `json:"image_size"`
	Layout      imaging.Layout `json:"layout"`
	ScoreIndex  int            `json:"score_index"`
}

func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, imaging.DefaultSize, imaging.DefaultSize, 3},
		OutputShape: []int64{1, 1},
		ImageSize:   imaging.DefaultSize,
		Layout:      imaging.NHWC,
	}
}

// ParseMetadata overlays the JSON document on DefaultMetadata.
func ParseMetadata(data []byte) (Metadata, error) {
	meta := DefaultMetadata()
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.validate(); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (m Metadata) validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return errors.New("metadata: input_name and output_name are required")
	}
	if m.Layout != imaging.NHWC && m.Layout != imaging.NCHW {
		return fmt.Errorf("metadata: unsupported layout %q", m.Layout)
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("metadata: invalid image_size %d", m.ImageSize)
	}
	if m.ScoreIndex < 0 || (elements(m.OutputShape) > 0 && int64(m.ScoreIndex) >= elements(m.OutputShape)) {
		return fmt.Errorf("metadata: score_index %d outside output shape %v", m.ScoreIndex, m.OutputShape)
	}
	return nil
}

func elements(shape []int64) int64 {
	return imaging.Tensor{Shape: shape}.Elements()
}
