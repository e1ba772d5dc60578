// Package render is the read-path orchestrator: the three-tier lookup
// (Hot Cache → materialized rendition → render from origin) and the
// upload-time origin materialization, wired from pathing, imgcodec,
// hotcache, and storage.
package render

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pkg/errors"

	"github.com/zimgd/zimgd/internal/config"
	"github.com/zimgd/zimgd/internal/hotcache"
	"github.com/zimgd/zimgd/internal/imgcodec"
	"github.com/zimgd/zimgd/internal/pathing"
	"github.com/zimgd/zimgd/internal/storage"
)

// Sentinel error kinds (spec §7's taxonomy, as distinguishable causes).
var (
	ErrUnsupportedFormat = errors.New("render: unsupported image format")
	ErrNotFound          = errors.New("render: image not found")
	ErrCodecFailure      = errors.New("render: codec failure")
)

// RenditionRequest is the four-tuple descriptor of spec §3 plus the
// fingerprint it applies to.
type RenditionRequest struct {
	FP         string
	W, H       int
	Proportion bool
	Gray       bool
}

// Key returns the canonical rendition key for r.
func (r RenditionRequest) Key() string {
	return pathing.Key(r.FP, r.W, r.H, r.Proportion, r.Gray)
}

// Engine ties the storage layout, the codec, and the hot cache together. It
// is safe for concurrent use by many request handlers.
type Engine struct {
	cfg   config.Config
	cache *hotcache.Cache
	log   *logrus.Entry
	sf    singleflight.Group
}

// NewEngine builds a render Engine. cache is shared process-wide.
func NewEngine(cfg config.Config, cache *hotcache.Cache, log *logrus.Entry) *Engine {
	return &Engine{cfg: cfg, cache: cache, log: log}
}

func (e *Engine) paths(fp, renditionName string) (dir, originPath, renditionPath string) {
	l1, l2 := pathing.Shard(fp, e.cfg.ShardBuckets)
	return pathing.Paths(e.cfg.ImgPath, fp, l1, l2, renditionName)
}

// StoreOrigin fingerprints payload, validates its format, and writes the
// origin blob (and a best-effort JPEG baseline) if it isn't already stored.
// It always returns the fingerprint on success, whether or not new bytes
// were written — identical uploads collapse to the same stored origin.
func (e *Engine) StoreOrigin(payload []byte) (string, error) {
	if imgcodec.Sniff(payload) == imgcodec.Unknown {
		return "", ErrUnsupportedFormat
	}

	fp := pathing.Fingerprint(payload)
	originKey := pathing.OriginKey(fp)

	if e.cache.Exists(originKey) {
		return fp, nil
	}

	dir, originPath, _ := e.paths(fp, pathing.OriginSuffix)

	if storage.Exists(originPath) {
		e.cache.Put(originKey, payload)
		return fp, nil
	}

	if err := storage.EnsureDir(dir); err != nil {
		return "", err
	}
	if err := storage.WriteNew(originPath, payload); err != nil && err != storage.ErrBusy {
		return "", err
	}

	e.cache.Put(originKey, payload)
	e.writeBaseline(dir, payload)

	return fp, nil
}

// writeBaseline best-effort re-encodes payload as JPEG quality 75 with
// metadata stripped, writing it beside the origin. Failures are logged,
// never surfaced — the baseline is a convenience artifact, not part of
// any invariant.
func (e *Engine) writeBaseline(dir string, payload []byte) {
	img, err := imgcodec.Decode(payload)
	if err != nil {
		e.log.WithError(err).Warn("baseline: decode failed, skipping")
		return
	}
	jpg, err := img.EncodeJPEG(75)
	if err != nil {
		e.log.WithError(err).Warn("baseline: encode failed, skipping")
		return
	}
	if err := storage.WriteNew(pathing.BaselinePath(dir), jpg); err != nil && err != storage.ErrBusy {
		e.log.WithError(err).Warn("baseline: write failed, skipping")
	}
}

// Fetch resolves a rendition through the three-tier read path: Hot Cache,
// then the materialized rendition file, then rendering from origin.
func (e *Engine) Fetch(req RenditionRequest) ([]byte, error) {
	key := req.Key()

	if blob, ok := e.cache.Get(key); ok {
		return blob, nil
	}

	renditionName := pathing.RenditionName(req.W, req.H, req.Proportion, req.Gray)
	dir, _, renditionPath := e.paths(req.FP, renditionName)

	if storage.Exists(renditionPath) {
		buf, err := storage.ReadAll(renditionPath)
		if err != nil {
			return nil, err
		}
		e.cache.Put(key, buf)
		return buf, nil
	}

	v, err, _ := e.sf.Do(key, func() (interface{}, error) {
		return e.materialize(req, dir, renditionPath)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// materialize runs the render-from-origin path (spec §4.6 step 6) and, when
// the rendition isn't oversized-and-unresizable, asynchronously persists it
// to disk. It is called at most once in-process per key at a time via the
// Engine's singleflight group; the on-disk write still goes through the
// advisory flock in storage.WriteNew as the cross-process safety net.
func (e *Engine) materialize(req RenditionRequest, dir, renditionPath string) ([]byte, error) {
	img, gotColor, err := e.loadForRender(req)
	if err != nil {
		return nil, err
	}

	shouldMaterialize := true

	// Step 6(a): when the color-rendition shortcut was taken, img is already
	// the color rendition rendered to the target dimensions — skip straight
	// to the grayscale conversion (step f) rather than re-entering the
	// resize/oversize policy against it.
	if !gotColor {
		ow, oh := img.Width(), img.Height()
		w, h := req.W, req.H

		if w <= ow && h <= oh {
			if req.Proportion {
				if w != 0 && h == 0 {
					h = w * oh / ow
				} else {
					w = h * ow / oh
				}
			}
			if w > 0 && h > 0 {
				img = img.Resize(w, h)
			}
		} else {
			// A requested dimension exceeds the origin: return the origin
			// rendition at full size, and don't persist a new rendition file.
			shouldMaterialize = false
		}
	}

	if req.Gray {
		img = img.ToGray()
	}

	// Spec §9(b): skip the recompression pass (re-deriving JPEG quality
	// from whatever the source currently held, then stripping metadata)
	// when the color-rendition shortcut was taken for a specific
	// (non-zero) requested width — in that case the source was already a
	// materialized rendition, so its quality is kept as-is instead of
	// being floored to 75 again. Go's image.Image carries no "current
	// quality" once decoded, so "kept as-is" is approximated by the
	// rendition-baseline quality of 90 rather than re-deriving
	// quality*0.75; see DESIGN.md.
	quality := 75
	if gotColor && req.W != 0 {
		quality = 90
	}
	out, err := img.EncodeJPEG(quality)
	if err != nil {
		return nil, errors.Wrap(ErrCodecFailure, err.Error())
	}

	e.cache.Put(req.Key(), out)

	if shouldMaterialize {
		go func() {
			if err := storage.EnsureDir(dir); err != nil {
				e.log.WithError(err).Warn("materialize: ensure dir failed")
				return
			}
			if err := storage.WriteNew(renditionPath, out); err != nil && err != storage.ErrBusy {
				e.log.WithError(err).Warn("materialize: write-back failed")
			}
		}()
	}

	return out, nil
}

// loadForRender resolves the working image for a render, trying the
// color-rendition shortcut first when a gray rendition is requested, then
// falling back to the origin (cache, then disk). It reports whether the
// color shortcut was taken.
func (e *Engine) loadForRender(req RenditionRequest) (*imgcodec.Image, bool, error) {
	if req.Gray {
		colorKey := pathing.Key(req.FP, req.W, req.H, req.Proportion, false)

		if blob, ok := e.cache.Get(colorKey); ok {
			if img, err := imgcodec.Decode(blob); err == nil {
				return img, true, nil
			}
			e.cache.Delete(colorKey)
		}

		colorName := pathing.RenditionName(req.W, req.H, req.Proportion, false)
		_, _, colorPath := e.paths(req.FP, colorName)
		if storage.Exists(colorPath) {
			if buf, err := storage.ReadAll(colorPath); err == nil {
				if img, err := imgcodec.Decode(buf); err == nil {
					e.cache.Put(colorKey, buf)
					return img, true, nil
				}
			}
		}
	}

	originKey := pathing.OriginKey(req.FP)
	if blob, ok := e.cache.Get(originKey); ok {
		img, err := imgcodec.Decode(blob)
		if err == nil {
			return img, false, nil
		}
		e.cache.Delete(originKey)
	}

	_, originPath, _ := e.paths(req.FP, pathing.OriginSuffix)
	buf, err := storage.ReadAll(originPath)
	if err != nil {
		return nil, false, errors.Wrap(ErrNotFound, err.Error())
	}
	img, err := imgcodec.Decode(buf)
	if err != nil {
		return nil, false, errors.Wrap(ErrCodecFailure, err.Error())
	}
	e.cache.Put(originKey, buf)
	return img, false, nil
}
