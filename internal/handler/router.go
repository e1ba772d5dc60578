package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the Gin engine and registers every route in spec §6's
// HTTP surface. Any method/path combination not registered here falls
// through to gin's NoRoute/NoMethod, both wired to the 404 HTML response.
func NewRouter(h *Handler, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(ginLogrus(log), gin.Recovery())

	r.GET("/", h.Root)
	r.GET("/favicon.ico", h.Favicon)
	r.GET("/:fp", h.Fetch)
	r.POST("/:fp", h.Upload)

	notFound := func(c *gin.Context) {
		h.notFound(c)
	}
	r.NoRoute(notFound)
	r.NoMethod(notFound)

	return r
}

// ginLogrus replaces gin's default text logger with one that writes
// through the service's structured logrus.Logger.
func ginLogrus(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Info("request")
	}
}
