package qr

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/prasetyowira/qrgen/constant"
)

var (
	// ErrInvalidURL is returned for empty input or input that is not an absolute URL.
	ErrInvalidURL = errors.New(constant.ErrInvalidURL)
	// ErrInvalidSize is returned for sizes below one pixel.
	ErrInvalidSize = errors.New(constant.ErrInvalidSize)
)

// Request is a validated URL together with the image-service address that renders it
type Request struct {
	ValidatedURL string
	RequestURL   string
	Size         int
}

// Builder turns a URL into an image request against one service base.
type Builder struct {
	serviceBase string
}

// NewBuilder creates a builder for serviceBase. An empty base selects the
// public QR Server endpoint.
func NewBuilder(serviceBase string) *Builder {
	if serviceBase == "" {
		serviceBase = constant.DefaultServiceBase
	}
	return &Builder{serviceBase: serviceBase}
}

// ServiceBase returns the endpoint every request URL starts with
func (b *Builder) ServiceBase() string {
	return b.serviceBase
}

// Build validates urlText and derives the image request URL. It has no side
// effects: the same inputs always produce the same Request.
func (b *Builder) Build(urlText string, size int) (Request, error) {
	validated, err := ValidateURL(urlText)
	if err != nil {
		return Request{}, err
	}
	if size <= 0 {
		return Request{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	dim := strconv.Itoa(size)
	return Request{
		ValidatedURL: validated,
		RequestURL:   b.serviceBase + "?size=" + dim + "x" + dim + "&data=" + EncodeComponent(validated),
		Size:         size,
	}, nil
}

// ValidateURL trims urlText and checks that it is absolute, with both a
// scheme and a host.
func ValidateURL(urlText string) (string, error) {
	trimmed := strings.TrimSpace(urlText)
	if trimmed == "" {
		return "", ErrInvalidURL
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, trimmed)
	}
	return trimmed, nil
}

// EncodeComponent percent-encodes s for use as a single query value.
// Spaces become %20 rather than '+', so the service reads the data verbatim.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
