package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// uploadResponse is the fixed JSON shape for both success and failure —
// spec §9(c) preserves the original's HTTP-200-on-failure wire behavior
// deliberately, so the client inspects "status", not the HTTP code.
type uploadResponse struct {
	Status  int    `json:"status"`
	Picture string `json:"picture,omitempty"`
}

// Upload handles POST requests carrying a single multipart/form-data file
// part named "userfile" (spec §4.5). Every failure in the chain collapses
// to {"status":-1} at HTTP 200; success answers {"status":0,"picture":fp}.
func (h *Handler) Upload(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		h.uploadFail(c)
		return
	}

	contentLength := c.GetHeader("Content-Length")
	if contentLength == "" {
		h.uploadFail(c)
		return
	}
	if n, err := strconv.Atoi(contentLength); err != nil || n <= 0 {
		h.uploadFail(c)
		return
	}

	delimiter, ok := extractBoundary(c.GetHeader("Content-Type"))
	if !ok {
		h.uploadFail(c)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		h.uploadFail(c)
		return
	}

	prt, err := parseSinglePart(body, delimiter)
	if err != nil {
		h.log.WithError(err).Info("upload: multipart parse failed")
		h.uploadFail(c)
		return
	}

	fp, err := h.engine.StoreOrigin(prt.payload)
	if err != nil {
		h.log.WithError(err).Info("upload: store origin failed")
		h.uploadFail(c)
		return
	}

	c.Header("Server", serverBanner)
	c.JSON(http.StatusOK, uploadResponse{Status: 0, Picture: fp})
}

func (h *Handler) uploadFail(c *gin.Context) {
	c.Header("Server", serverBanner)
	c.JSON(http.StatusOK, uploadResponse{Status: -1})
}
