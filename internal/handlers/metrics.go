package handlers

import (
	"github.com/collabify/backend/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics exposes the Prometheus registry in text format.
func Metrics() gin.HandlerFunc {
	return gin.WrapH(metrics.Handler())
}
