package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"photoshelf/internal/models"
)

// Object metadata travels as HTTP headers, which only carry a restricted
// byte range, so text fields are percent-encoded before they are attached.
const (
	AttrFilename     = "filename"
	AttrPhotographer = "photographer"
	AttrDescription  = "description"
)

// EncodingError reports an attribute value that could not be decoded.
type EncodingError struct {
	Field string
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("decode attribute %s: %v", e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func EncodeAttribute(s string) string {
	return url.PathEscape(s)
}

func DecodeAttribute(s string) (string, error) {
	return url.PathUnescape(s)
}

func EncodeAttributes(attrs models.BlobAttributes) map[string]string {
	return map[string]string{
		AttrFilename:     EncodeAttribute(attrs.Filename),
		AttrPhotographer: EncodeAttribute(attrs.Photographer),
		AttrDescription:  EncodeAttribute(attrs.Description),
	}
}

// DecodeAttributes reads attributes produced by EncodeAttributes. Missing or
// undecodable fields fall back to their upload defaults; the returned error
// lists the fields that failed to decode and is informational only.
func DecodeAttributes(raw map[string]string) (models.BlobAttributes, error) {
	out := models.BlobAttributes{Photographer: models.DefaultPhotographer}
	var errs []error

	lookup := func(field string) (string, bool) {
		for k, v := range raw {
			if strings.EqualFold(k, field) {
				decoded, err := DecodeAttribute(v)
				if err != nil {
					errs = append(errs, &EncodingError{Field: field, Err: err})
					return "", false
				}
				return decoded, true
			}
		}
		return "", false
	}

	if v, ok := lookup(AttrFilename); ok {
		out.Filename = v
	}
	if v, ok := lookup(AttrPhotographer); ok && v != "" {
		out.Photographer = v
	}
	if v, ok := lookup(AttrDescription); ok {
		out.Description = v
	}

	return out, errors.Join(errs...)
}
