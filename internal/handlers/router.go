package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the prediction routes, health and metrics.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors())

	r.GET("/health", h.Health)
	r.POST("/predict", h.Predict)
	r.GET("/predict/histories", h.Histories)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
