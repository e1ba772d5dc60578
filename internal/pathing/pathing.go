// Package pathing computes the content-addressed names and shard locations
// used by the storage engine. Every function here is pure — no I/O.
package pathing

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"path/filepath"
)

// OriginSuffix is the filename of the unmodified origin blob within an
// image's directory. It is the special-case rendition name for the
// (0, 0, true, false) tuple.
const OriginSuffix = "0*0p"

// BaselineSuffix is the filename of the JPEG-quality-75 baseline produced
// best-effort at upload time, sitting beside the origin blob.
const BaselineSuffix = "0.jpg"

// Fingerprint returns the 32-character lowercase hex MD5 of buf. Identity
// is content-only: identical bytes always collapse to the same fingerprint.
func Fingerprint(buf []byte) string {
	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}

// Shard applies the configured string-hash to fp and to fp[3:], returning
// the two fan-out indices used to build the sharded directory tree. buckets
// is the exclusive upper bound of both indices.
func Shard(fp string, buckets int) (l1, l2 int) {
	return stringHash(fp, buckets), stringHash(fp[3:], buckets)
}

// stringHash is the deterministic, process-restart-stable string hash
// referenced as "h" in the storage layout. FNV-1a is used because it is
// pure, allocation-free, and stable across Go releases and platforms.
func stringHash(s string, buckets int) int {
	if buckets <= 0 {
		buckets = 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(buckets))
}

// RenditionName builds the canonical on-disk filename for a rendition
// descriptor. The origin rendition (0, 0, true, false) yields OriginSuffix,
// the single special-cased filename in the storage layout; any other flag
// combination, including (0, 0, true, true), gets the generic name.
func RenditionName(w, h int, proportion, gray bool) string {
	if w == 0 && h == 0 && proportion && !gray {
		return OriginSuffix
	}
	name := fmt.Sprintf("%d*%d", w, h)
	if proportion {
		name += "p"
	}
	if gray {
		name += "g"
	}
	return name
}

// Key builds the canonical rendition key used for both Hot Cache lookups
// and as the stable input to the on-disk filename.
func Key(fp string, w, h int, proportion, gray bool) string {
	return fmt.Sprintf("img:%s:%d:%d:%s:%s", fp, w, h, boolFlag(proportion), boolFlag(gray))
}

// OriginKey is the canonical rendition key of the origin rendition.
func OriginKey(fp string) string {
	return Key(fp, 0, 0, true, false)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Paths computes the image directory, origin blob path, and rendition file
// path for a given fingerprint and rendition filename, given the storage
// root and the shard indices for that fingerprint.
func Paths(root, fp string, l1, l2 int, renditionName string) (dir, originPath, renditionPath string) {
	dir = filepath.Join(root, fmt.Sprintf("%d", l1), fmt.Sprintf("%d", l2), fp)
	originPath = filepath.Join(dir, OriginSuffix)
	renditionPath = filepath.Join(dir, renditionName)
	return dir, originPath, renditionPath
}

// BaselinePath is the sibling JPEG-baseline path for an image directory.
func BaselinePath(dir string) string {
	return filepath.Join(dir, BaselineSuffix)
}
