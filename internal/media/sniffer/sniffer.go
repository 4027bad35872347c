package sniffer

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

// HeadSize is how many leading bytes Detect inspects.
const HeadSize = 512

var ErrUnknownType = errors.New("unknown media type")

type signature struct {
	mime  string
	match func(head []byte) bool
}

// Only raster formats are recognised. Markup such as SVG can carry script
// and is never labelled as an image.
var signatures = []signature{
	{"image/jpeg", prefix(0xff, 0xd8, 0xff)},
	{"image/png", prefix(0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n')},
	{"image/gif", func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("GIF87a")) || bytes.HasPrefix(h, []byte("GIF89a"))
	}},
	{"image/webp", func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP"))
	}},
	{"image/avif", func(h []byte) bool {
		// ISO-BMFF: 4-byte box size, then the ftyp box with its brands.
		return len(h) >= 12 && string(h[4:8]) == "ftyp" && bytes.Contains(h[8:], []byte("avif"))
	}},
	{"image/bmp", prefix('B', 'M')},
	{"image/tiff", func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("II*\x00")) || bytes.HasPrefix(h, []byte("MM\x00*"))
	}},
}

func prefix(magic ...byte) func([]byte) bool {
	return func(h []byte) bool { return bytes.HasPrefix(h, magic) }
}

// Detect reads up to HeadSize bytes from r and reports the image MIME type.
// The consumed bytes are returned so the caller can replay them.
func Detect(r io.Reader) (string, []byte, error) {
	head := make([]byte, HeadSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	mime, err := DetectHead(head)
	return mime, head, err
}

func DetectHead(head []byte) (string, error) {
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.mime, nil
		}
	}
	return "", ErrUnknownType
}

// IsImage reports whether mime is one of the raster types Detect knows.
func IsImage(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, sig := range signatures {
		if sig.mime == mime {
			return true
		}
	}
	return false
}

func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}
