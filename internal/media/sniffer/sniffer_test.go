package sniffer

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		mime string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "image/png"},
		{"gif", []byte("GIF89a......"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"avif", []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00"), "image/avif"},
		{"bmp", []byte("BM\x36\x00\x0c\x00"), "image/bmp"},
		{"tiff", []byte("II*\x00\x08\x00\x00\x00"), "image/tiff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := DetectHead(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, mime)
		})
	}
}

func TestDetectHeadRejectsNonRaster(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		[]byte("plain text"),
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`),
		[]byte(`<?xml version="1.0"?><note/>`),
		[]byte("<!DOCTYPE html><html></html>"),
	} {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnknownType, string(head))
	}
}

func TestDetectReturnsConsumedHead(t *testing.T) {
	data := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0x07}, 1000)...)
	r := bytes.NewReader(data)

	mime, head, err := Detect(r)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Len(t, head, HeadSize)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, append(head, rest...))
}

func TestDetectShortInput(t *testing.T) {
	mime, head, err := Detect(strings.NewReader("GIF87a"))
	require.NoError(t, err)
	assert.Equal(t, "image/gif", mime)
	assert.Equal(t, []byte("GIF87a"), head)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/jpeg"))
	assert.True(t, IsImage(" Image/PNG "))
	assert.False(t, IsImage("image/svg+xml"))
	assert.False(t, IsImage("text/html"))
	assert.False(t, IsImage(""))
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	assert.Empty(t, MimeTypeFromHTTP(h))

	h.Set("Content-Type", "image/jpeg; charset=binary")
	assert.Equal(t, "image/jpeg", MimeTypeFromHTTP(h))

	h.Set("Content-Type", " image/png ")
	assert.Equal(t, "image/png", MimeTypeFromHTTP(h))
}
