// Command zimgd runs the zimg image storage and rendition service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/zimgd/zimgd/internal/config"
	"github.com/zimgd/zimgd/internal/handler"
	"github.com/zimgd/zimgd/internal/hotcache"
	"github.com/zimgd/zimgd/internal/render"
)

// cli is the enumerated configuration surface of spec §6, bootstrapped via
// Kong instead of a process-wide settings struct.
var cli struct {
	Addr         string `default:":4869" help:"HTTP listen address."`
	RootPath     string `default:"./root.html" help:"Path to the welcome HTML page."`
	ImgPath      string `default:"./data" help:"Root of the sharded on-disk image store."`
	CacheMaxSize int    `default:"5242880" help:"Per-entry byte limit for the hot cache."`
	ShardBuckets int    `default:"1024" help:"Exclusive upper bound of the shard fan-out indices."`
	LogLevel     string `default:"info" help:"Logging level (debug, info, warn, error)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("zimgd"),
		kong.Description("zimg-compatible image storage and rendition service."),
	)

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cli.LogLevel); err == nil {
		log.SetLevel(level)
	}
	entry := log.WithField("component", "zimgd")

	cfg := config.Config{
		Addr:         cli.Addr,
		RootPath:     cli.RootPath,
		ImgPath:      cli.ImgPath,
		CacheMaxSize: cli.CacheMaxSize,
		ShardBuckets: cli.ShardBuckets,
	}

	if err := os.MkdirAll(cfg.ImgPath, 0o755); err != nil {
		entry.WithError(err).Fatal("cannot create image store root")
	}

	cache := hotcache.New(cfg.CacheMaxSize, 30*time.Minute, time.Hour)
	engine := render.NewEngine(cfg, cache, entry)
	h := handler.New(cfg, engine, entry)
	router := handler.NewRouter(h, log)

	entry.WithField("addr", cfg.Addr).Info("zimgd starting")
	if err := router.Run(cfg.Addr); err != nil {
		entry.WithError(err).Fatal(fmt.Sprintf("server stopped: %v", err))
	}
}
