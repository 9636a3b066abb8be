package qrcode

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDimensions(t *testing.T) {
	size, err := ParseDimensions("300x300")
	assert.NoError(t, err)
	assert.Equal(t, 300, size)

	size, err = ParseDimensions("400X200")
	assert.NoError(t, err)
	assert.Equal(t, 200, size)

	for _, bad := range []string{"", "300", "axb", "0x0", "-1x-1", "5000x5000"} {
		_, err := ParseDimensions(bad)
		assert.Error(t, err, bad)
	}
}

func TestGenerateQRCode(t *testing.T) {
	img, err := NewGenerator().GenerateQRCode("https://example.com", 256)

	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
	assert.Equal(t, 256, decoded.Bounds().Dy())
}

func TestServeHTTP(t *testing.T) {
	g := NewGenerator()

	req := httptest.NewRequest(http.MethodGet, "/?size=200x200&data=https%3A%2F%2Fexample.com", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)
}

func TestServeHTTP_BadRequests(t *testing.T) {
	g := NewGenerator()

	for _, target := range []string{"/?size=200x200", "/?data=x", "/?size=big&data=x"} {
		w := httptest.NewRecorder()
		g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}
