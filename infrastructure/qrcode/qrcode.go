package qrcode

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/infrastructure/logger"
	"github.com/skip2/go-qrcode"
)

// MaxDimension caps the rendered image size
const MaxDimension = 1000

var errBadDimensions = errors.New("size must look like WxH")

// Generator renders QR codes locally. It speaks the same query contract as
// the remote image service (?size=WxH&data=...) so it can stand in for it
// during development and in tests.
type Generator struct {
	level qrcode.RecoveryLevel
}

// NewGenerator creates a new QR code generator
func NewGenerator() *Generator {
	return &Generator{
		level: qrcode.Medium,
	}
}

// GenerateQRCode encodes data as a square PNG of the given pixel size
func (g *Generator) GenerateQRCode(data string, size int) ([]byte, error) {
	return qrcode.Encode(data, g.level, size)
}

// ParseDimensions parses "300x300". Non-square requests are accepted and
// rendered at the smaller side.
func ParseDimensions(value string) (int, error) {
	w, h, ok := strings.Cut(strings.ToLower(value), "x")
	if !ok {
		return 0, errBadDimensions
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, errBadDimensions
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, errBadDimensions
	}
	side := min(width, height)
	if side <= 0 || side > MaxDimension {
		return 0, errBadDimensions
	}
	return side, nil
}

// ServeHTTP implements the image service endpoint
func (g *Generator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	data := query.Get("data")
	if data == "" {
		http.Error(w, "data is required", http.StatusBadRequest)
		return
	}

	size, err := ParseDimensions(query.Get("size"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	png, err := g.GenerateQRCode(data, size)
	if err != nil {
		logger.CtxError(ctx, "Failed to render QR code", logger.LoggerInfo{
			ContextFunction: constant.CtxStub,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeAPIServiceError,
				Message: err.Error(),
				Type:    constant.ErrTypeAPI,
			},
			Data: map[string]interface{}{
				constant.DataSize: size,
			},
		})
		http.Error(w, "failed to render QR code", http.StatusInternalServerError)
		return
	}

	logger.CtxDebug(ctx, "Rendered QR code", logger.LoggerInfo{
		ContextFunction: constant.CtxStub,
		Data: map[string]interface{}{
			constant.DataSize:  size,
			constant.DataBytes: len(png),
		},
	})

	w.Header().Set(constant.HeaderContentType, "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
