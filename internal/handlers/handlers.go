package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Brownie44l1/cancer-api/internal/metrics"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
	"github.com/gin-gonic/gin"
)

type PredictionService interface {
	HandlePredict(ctx context.Context, image []byte) (prediction.Record, error)
	HandleHistory(ctx context.Context) ([]prediction.HistoryEntry, error)
}

type ModelStatus interface {
	Status() model.State
}

type Handler struct {
	service        PredictionService
	model          ModelStatus
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

func NewHandler(service PredictionService, model ModelStatus, m *metrics.Metrics, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		model:          model,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Health(c *gin.Context) {
	state := h.model.Status()
	if state != model.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "model": state.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "model": state.String()})
}

func (h *Handler) Predict(c *gin.Context) {
	if c.Request.ContentLength > h.maxUploadBytes {
		h.payloadTooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	image, err := readImage(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.payloadTooLarge(c)
			return
		}
		// No usable upload; the service reports it after the readiness check.
		image = nil
	}

	record, err := h.service.HandlePredict(c.Request.Context(), image)
	if err != nil {
		code, message, reason := classifyError(err)
		h.metrics.ObserveFailure(reason)
		fail(c, code, message)
		return
	}

	h.metrics.ObservePrediction(string(record.Result))
	c.JSON(http.StatusCreated, response{
		Status:  statusSuccess,
		Message: msgPredicted,
		Data:    record,
	})
}

func (h *Handler) Histories(c *gin.Context) {
	entries, err := h.service.HandleHistory(c.Request.Context())
	if err != nil {
		h.metrics.ObserveFailure("history")
		fail(c, http.StatusInternalServerError, msgHistoryError)
		return
	}
	c.JSON(http.StatusOK, response{Status: statusSuccess, Data: entries})
}

func (h *Handler) payloadTooLarge(c *gin.Context) {
	h.metrics.ObserveFailure("payload_too_large")
	fail(c, http.StatusRequestEntityTooLarge, payloadTooLargeMessage(h.maxUploadBytes))
}

func readImage(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, err
	}
	log.Printf("Received file: %s, size: %d bytes", header.Filename, header.Size)

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
