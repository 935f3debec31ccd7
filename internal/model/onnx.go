package model

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/cancer-api/internal/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime loads the onnxruntime shared library once per process.
func InitRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// onnxSession allocates input and output tensors per call, so concurrent Runs
// share only the read-only session.
type onnxSession struct {
	session     *ort.DynamicAdvancedSession
	outputShape ort.Shape
}

// OpenONNX is an Opener backed by onnxruntime. InitRuntime must have
// succeeded first.
func OpenONNX(modelData []byte, meta Metadata) (Session, error) {
	if !ort.IsInitialized() {
		return nil, errors.New("ONNX environment is not initialized")
	}
	session, err := ort.NewDynamicAdvancedSessionWithONNXData(modelData,
		[]string{meta.InputName}, []string{meta.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &onnxSession{
		session:     session,
		outputShape: ort.NewShape(meta.OutputShape...),
	}, nil
}

func (s *onnxSession) Run(input imaging.Tensor) ([]float32, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](s.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, err
	}

	out := make([]float32, len(outputTensor.GetData()))
	copy(out, outputTensor.GetData())
	return out, nil
}

func (s *onnxSession) Close() error {
	return s.session.Destroy()
}
