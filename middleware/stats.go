package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/insights/logging"
)

// WebsiteKey is the gin context key under which handlers publish the
// website being analyzed.
const WebsiteKey = "website"

// saveEvery is the number of analysis requests between statistics saves.
const saveEvery = 100

// Stats tracks visitors and analysis requests.
func Stats(stats *logging.Statistics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method != http.MethodPost || c.FullPath() != "/api/analyze" {
			return
		}

		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackAnalysis(c.GetString(WebsiteKey), loadTime, c.Writer.Status() >= http.StatusBadRequest)

		if stats.TotalRequests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					logger.Warn("failed to save statistics", "error", err)
				}
			}()
		}
	}
}
