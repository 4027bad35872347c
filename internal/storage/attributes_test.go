package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoshelf/internal/models"
	"photoshelf/internal/storage"
)

func TestAttributeRoundTrip(t *testing.T) {
	values := []string{
		"",
		"sunset",
		"Ana María",
		"攝影師 王小明",
		"夕陽 🌅 over the bay",
		"100% pure / no filter",
		"tab\tand\nnewline",
		"a+b=c&d",
	}
	for _, v := range values {
		encoded := storage.EncodeAttribute(v)
		for i := 0; i < len(encoded); i++ {
			assert.Less(t, encoded[i], byte(0x80), "encoded value must be ASCII: %q", encoded)
			assert.NotEqual(t, byte('\n'), encoded[i])
		}
		decoded, err := storage.DecodeAttribute(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func TestEncodeDecodeAttributes(t *testing.T) {
	in := models.BlobAttributes{
		Filename:     "海灘.jpg",
		Photographer: "Ana",
		Description:  "日落 sunset",
	}
	out, err := storage.DecodeAttributes(storage.EncodeAttributes(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeAttributesDefaults(t *testing.T) {
	out, err := storage.DecodeAttributes(nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPhotographer, out.Photographer)
	assert.Empty(t, out.Description)
	assert.Empty(t, out.Filename)
}

func TestDecodeAttributesCaseInsensitiveKeys(t *testing.T) {
	out, err := storage.DecodeAttributes(map[string]string{
		"Photographer": "Ana",
		"DESCRIPTION":  "sunset%20glow",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", out.Photographer)
	assert.Equal(t, "sunset glow", out.Description)
}

func TestDecodeAttributesBadEncodingTreatedAsAbsent(t *testing.T) {
	out, err := storage.DecodeAttributes(map[string]string{
		"photographer": "%zz",
		"description":  "fine",
	})
	require.Error(t, err)

	var encErr *storage.EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, storage.AttrPhotographer, encErr.Field)

	assert.Equal(t, models.DefaultPhotographer, out.Photographer)
	assert.Equal(t, "fine", out.Description)
}
