package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zimgd/zimgd/internal/render"
)

// Root serves the static welcome page at "/".
func (h *Handler) Root(c *gin.Context) {
	c.Header("Server", serverBanner)
	c.Data(http.StatusOK, "text/html", []byte(h.welcomePage()))
}

// Favicon answers an empty 200 for "/favicon.ico".
func (h *Handler) Favicon(c *gin.Context) {
	c.Header("Server", serverBanner)
	c.Data(http.StatusOK, "text/html", nil)
}

// Fetch resolves a rendition for "/<fp32>" with optional w/h/p/g query
// parameters (spec §4.6). Any failure collapses to a 404 HTML response.
func (h *Handler) Fetch(c *gin.Context) {
	fp := c.Param("fp")
	if strings.Contains(c.Request.URL.RequestURI(), "..") || !isHex32(fp) {
		h.notFound(c)
		return
	}

	rawW := c.Query("w")
	rawH := c.Query("h")
	if rawW == "g" && rawH == "w" {
		c.Header("Server", serverBanner)
		c.Data(http.StatusOK, "text/html", []byte(loveIsEternalPage))
		return
	}

	w := parseQueryInt(c, "w", 0)
	ht := parseQueryInt(c, "h", 0)
	proportion := parseQueryInt(c, "p", 1) != 0
	gray := parseQueryInt(c, "g", 0) != 0

	blob, err := h.engine.Fetch(render.RenditionRequest{
		FP:         fp,
		W:          w,
		H:          ht,
		Proportion: proportion,
		Gray:       gray,
	})
	if err != nil {
		h.log.WithError(err).Info("fetch: resolution failed")
		h.notFound(c)
		return
	}

	c.Header("Server", serverBanner)
	c.Data(http.StatusOK, "image/jpeg", blob)
}

func (h *Handler) notFound(c *gin.Context) {
	c.Header("Server", serverBanner)
	c.Data(http.StatusNotFound, "text/html", []byte("<html><body><h1>404 Not Found!</h1></body></html>"))
}

func isHex32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// parseQueryInt mirrors the original's atoi(str|"default") convention: a
// missing query parameter falls back to def, but a present, non-numeric
// value parses as 0 (atoi's own behavior on garbage input) rather than
// falling back to def.
func parseQueryInt(c *gin.Context, name string, def int) int {
	raw, present := c.GetQuery(name)
	if !present {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
