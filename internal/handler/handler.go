// Package handler implements the HTTP surface of zimgd: the upload and
// fetch request handlers (spec §4.5, §4.6) wired to a render.Engine.
package handler

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/zimgd/zimgd/internal/config"
	"github.com/zimgd/zimgd/internal/render"
)

// serverBanner is sent on every response, taken verbatim from the
// original's zhttpd.c server_name.
const serverBanner = "zimg/1.0.0 (Unix)"

const defaultWelcomePage = "<html>\n<body>\n<h1>\nWelcome To zimg World!</h1>\n</body>\n</html>\n"

const loveIsEternalPage = `<html>
 <head>
  <title>Love is Eternal</title>
 </head>
 <body>
  <h1>Single1024</h1>
Since 2008-12-22, there left no room in my heart for another one.</br>
</body>
</html>
`

// Handler holds the shared dependencies every route needs.
type Handler struct {
	cfg    config.Config
	engine *render.Engine
	log    *logrus.Entry
}

// New builds a Handler.
func New(cfg config.Config, engine *render.Engine, log *logrus.Entry) *Handler {
	return &Handler{cfg: cfg, engine: engine, log: log}
}

// welcomePage returns the configured root page's bytes, falling back to a
// built-in string if the file can't be read (spec §4.6's root route).
func (h *Handler) welcomePage() string {
	buf, err := os.ReadFile(h.cfg.RootPath)
	if err != nil {
		return defaultWelcomePage
	}
	return string(buf)
}
