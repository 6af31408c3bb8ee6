package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Middleware records request counts, sizes and latency per route. Websocket
// upgrades are skipped: a stream lives as long as its session and is
// counted by the stream metrics instead.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			c.Next()
			return
		}

		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reqSize := max(c.Request.ContentLength, 0)

		c.Next()

		respSize := max(int64(c.Writer.Size()), 0)
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start), reqSize, respSize)
	}
}
