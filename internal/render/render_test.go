package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/zimgd/zimgd/internal/config"
	"github.com/zimgd/zimgd/internal/hotcache"
	"github.com/zimgd/zimgd/internal/imgcodec"
	"github.com/zimgd/zimgd/internal/pathing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.ImgPath = t.TempDir()
	cfg.ShardBuckets = 64
	cache := hotcache.New(cfg.CacheMaxSize, time.Hour, time.Hour)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewEngine(cfg, cache, log.WithField("test", true))
}

func TestStoreOriginWritesFile(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 20, 10)

	fp, err := e.StoreOrigin(payload)
	require.NoError(t, err)
	require.Len(t, fp, 32)
	require.Equal(t, pathing.Fingerprint(payload), fp)

	l1, l2 := pathing.Shard(fp, e.cfg.ShardBuckets)
	_, originPath, _ := pathing.Paths(e.cfg.ImgPath, fp, l1, l2, pathing.OriginSuffix)
	require.FileExists(t, originPath)

	baseline := pathing.BaselinePath(filepath.Dir(originPath))
	require.FileExists(t, baseline)
}

func TestStoreOriginRejectsUnsupportedFormat(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.StoreOrigin([]byte("not an image"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestStoreOriginIdempotent(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 5, 5)

	fp1, err := e.StoreOrigin(payload)
	require.NoError(t, err)
	fp2, err := e.StoreOrigin(payload)
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
}

func TestFetchOriginRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 8, 8)
	fp, err := e.StoreOrigin(payload)
	require.NoError(t, err)

	blob, err := e.Fetch(RenditionRequest{FP: fp, W: 0, H: 0, Proportion: true, Gray: false})
	require.NoError(t, err)

	img, err := imgcodec.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, 8, img.Width())
	require.Equal(t, 8, img.Height())
}

func TestFetchResizeWithProportion(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 100, 50)
	fp, err := e.StoreOrigin(payload)
	require.NoError(t, err)

	blob, err := e.Fetch(RenditionRequest{FP: fp, W: 40, H: 0, Proportion: true, Gray: false})
	require.NoError(t, err)

	img, err := imgcodec.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, 40, img.Width())
	require.Equal(t, 20, img.Height())

	// Materialized file must now exist.
	l1, l2 := pathing.Shard(fp, e.cfg.ShardBuckets)
	name := pathing.RenditionName(40, 0, true, false)
	_, _, renditionPath := pathing.Paths(e.cfg.ImgPath, fp, l1, l2, name)
	require.Eventually(t, func() bool {
		return fileExists(renditionPath)
	}, time.Second, 10*time.Millisecond)
}

func TestFetchOversizedReturnsOriginWithoutMaterializing(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 10, 10)
	fp, err := e.StoreOrigin(payload)
	require.NoError(t, err)

	blob, err := e.Fetch(RenditionRequest{FP: fp, W: 500, H: 500, Proportion: false, Gray: false})
	require.NoError(t, err)

	img, err := imgcodec.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, 10, img.Width())
	require.Equal(t, 10, img.Height())

	l1, l2 := pathing.Shard(fp, e.cfg.ShardBuckets)
	name := pathing.RenditionName(500, 500, false, false)
	_, _, renditionPath := pathing.Paths(e.cfg.ImgPath, fp, l1, l2, name)
	time.Sleep(50 * time.Millisecond)
	require.False(t, fileExists(renditionPath))
}

func TestFetchGrayRendersSingleChannel(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 16, 16)
	fp, err := e.StoreOrigin(payload)
	require.NoError(t, err)

	blob, err := e.Fetch(RenditionRequest{FP: fp, W: 0, H: 0, Proportion: true, Gray: true})
	require.NoError(t, err)

	img, err := imgcodec.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, 16, img.Width())
	require.Equal(t, 16, img.Height())

	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
	require.NoError(t, err)
	require.Equal(t, color.GrayModel, cfg.ColorModel)
}

func TestFetchRepeatedRequestsAreByteEqual(t *testing.T) {
	e := newTestEngine(t)
	payload := testPNG(t, 30, 30)
	fp, err := e.StoreOrigin(payload)
	require.NoError(t, err)

	req := RenditionRequest{FP: fp, W: 10, H: 10, Proportion: false, Gray: true}
	first, err := e.Fetch(req)
	require.NoError(t, err)
	second, err := e.Fetch(req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
