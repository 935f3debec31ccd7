package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Brownie44l1/cancer-api/internal/imaging"
	"github.com/Brownie44l1/cancer-api/internal/model"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"

	msgPredicted       = "Model is predicted successfully"
	msgModelNotReady   = "Model is not ready yet, please try again later"
	msgMissingImage    = "Image is required. Use 'image' as the form field name"
	msgPredictionError = "Terjadi kesalahan dalam melakukan prediksi"
	msgHistoryError    = "Failed to retrieve prediction histories"
)

type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, response{Status: statusFail, Message: message})
}

func payloadTooLargeMessage(limit int64) string {
	return fmt.Sprintf("Payload content length greater than maximum allowed: %d", limit)
}

// classifyError maps a prediction error to its HTTP status, client message and
// metrics reason.
func classifyError(err error) (int, string, string) {
	var (
		decodeErr      *imaging.DecodeError
		unsupportedErr *imaging.UnsupportedFormatError
		persistErr     *prediction.PersistenceError
		predictErr     *prediction.PredictionError
	)
	switch {
	case errors.Is(err, prediction.ErrModelNotReady), errors.Is(err, model.ErrNotReady):
		return http.StatusServiceUnavailable, msgModelNotReady, "model_not_ready"
	case errors.Is(err, prediction.ErrMissingInput):
		return http.StatusBadRequest, msgMissingImage, "missing_input"
	case errors.As(err, &decodeErr), errors.As(err, &unsupportedErr):
		return http.StatusBadRequest, msgPredictionError, "invalid_image"
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, msgPredictionError, "persistence"
	case errors.As(err, &predictErr):
		return http.StatusInternalServerError, msgPredictionError, "inference"
	}
	return http.StatusInternalServerError, msgPredictionError, "internal"
}
