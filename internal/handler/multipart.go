package handler

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedUpload marks any multipart parsing failure — missing
// boundary, missing filename, unsupported extension, or a truncated part.
var ErrMalformedUpload = errors.New("handler: malformed multipart upload")

var supportedExtensions = map[string]bool{
	".png":  true,
	".gif":  true,
	".jpg":  true,
	".jpeg": true,
}

// extractBoundary pulls the boundary parameter out of a multipart
// Content-Type header value and prepends "--" to form the delimiter used
// to scan the body, mirroring the original's "boundary=" + "--" prefixing.
func extractBoundary(contentType string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
		return "", false
	}
	idx := strings.Index(contentType, "boundary=")
	if idx == -1 {
		return "", false
	}
	b := contentType[idx+len("boundary="):]
	if semi := strings.IndexByte(b, ';'); semi != -1 {
		b = b[:semi]
	}
	b = strings.Trim(b, `"`)
	b = strings.TrimSpace(b)
	if b == "" {
		return "", false
	}
	return "--" + b, true
}

// part is a single parsed multipart part: its declared filename and its
// raw payload bytes.
type part struct {
	filename string
	payload  []byte
}

// parseSinglePart extracts the one "filename=" part expected in an upload
// body. It treats the body as an opaque byte slice throughout: boundary
// detection uses a true substring search over bytes (KMP), never a
// NUL-terminated string routine, since image payloads routinely contain
// zero bytes.
func parseSinglePart(body []byte, delimiter string) (*part, error) {
	filenameMarker := []byte("filename=")
	fIdx := indexBytes(body, filenameMarker)
	if fIdx == -1 {
		return nil, errors.Wrap(ErrMalformedUpload, "filename not found")
	}
	p := body[fIdx+len(filenameMarker):]

	var filename []byte
	if len(p) > 0 && p[0] == '"' {
		p = p[1:]
		end := indexBytes(p, []byte(`"`))
		if end == -1 {
			return nil, errors.Wrap(ErrMalformedUpload, "unterminated filename quote")
		}
		filename = p[:end]
		p = p[end:]
	} else {
		end := indexBytes(p, []byte("\r\n"))
		if end == -1 {
			return nil, errors.Wrap(ErrMalformedUpload, "filename not terminated")
		}
		filename = p[:end]
		p = p[end:]
	}

	ext := strings.ToLower(filepath.Ext(string(filename)))
	if !supportedExtensions[ext] {
		return nil, errors.Wrap(ErrMalformedUpload, "unsupported file extension")
	}

	// Skip the remaining part headers, terminated by the blank line.
	headerEnd := indexBytes(p, []byte("\r\n\r\n"))
	if headerEnd == -1 {
		return nil, errors.Wrap(ErrMalformedUpload, "part headers not terminated")
	}
	payloadStart := p[headerEnd+4:]

	delimBytes := []byte(delimiter)
	boundaryAt := kmpIndex(payloadStart, delimBytes)
	if boundaryAt == -1 {
		return nil, errors.Wrap(ErrMalformedUpload, "terminating boundary not found")
	}
	// The payload ends two bytes before the boundary: the "\r\n" that
	// precedes it belongs to the multipart framing, not the image.
	payloadEnd := boundaryAt - 2
	if payloadEnd <= 0 {
		return nil, errors.Wrap(ErrMalformedUpload, "empty image payload")
	}

	return &part{filename: string(filename), payload: payloadStart[:payloadEnd]}, nil
}

// indexBytes is a thin binary-safe wrapper so every search site in this
// file is visibly a byte-slice search, never implicit string conversion.
func indexBytes(haystack, needle []byte) int {
	return bytes.Index(haystack, needle)
}

// kmpIndex finds the first occurrence of needle in haystack using the
// Knuth-Morris-Pratt algorithm: linear time, no backtracking over
// haystack, and — critically — no assumption that either slice is
// NUL-terminated. This is the Go equivalent of the original C server's
// hand-rolled kmp() used to find the terminating multipart boundary inside
// a body that may contain arbitrary zero bytes.
func kmpIndex(haystack, needle []byte) int {
	if len(needle) == 0 {
		return 0
	}
	if len(haystack) < len(needle) {
		return -1
	}

	failure := make([]int, len(needle))
	k := 0
	for i := 1; i < len(needle); i++ {
		for k > 0 && needle[k] != needle[i] {
			k = failure[k-1]
		}
		if needle[k] == needle[i] {
			k++
		}
		failure[i] = k
	}

	k = 0
	for i := 0; i < len(haystack); i++ {
		for k > 0 && needle[k] != haystack[i] {
			k = failure[k-1]
		}
		if needle[k] == haystack[i] {
			k++
		}
		if k == len(needle) {
			return i - len(needle) + 1
		}
	}
	return -1
}
