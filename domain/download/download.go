package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/infrastructure/logger"
)

// ErrNetwork is returned when the image could not be fetched
var ErrNetwork = errors.New(constant.ErrNetwork)

// StatusError reports a non-success response from the image service.
// It matches ErrNetwork with errors.Is.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", constant.ErrNetwork, e.URL, e.StatusCode)
}

// Unwrap lets callers treat every fetch failure as ErrNetwork
func (e *StatusError) Unwrap() error {
	return ErrNetwork
}

// File is a fetched image ready to be saved
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Saver performs the save-as-file step for a fetched image
type Saver interface {
	Save(ctx context.Context, file File) error
}

// Result describes a completed download
type Result struct {
	Filename    string `json:"filename" yaml:"filename"`
	Bytes       int64  `json:"bytes" yaml:"bytes"`
	ContentType string `json:"content_type" yaml:"content_type"`
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now for filename generation
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTempDir sets where fetched payloads are staged, os.TempDir by default
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// Service fetches generated images and hands them to a Saver
type Service struct {
	client  *http.Client
	now     func() time.Time
	tempDir string
}

// NewService creates a download service. A nil client uses http.DefaultClient.
func NewService(client *http.Client, opts ...Option) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	s := &Service{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filename builds "{prefix}-{epoch millis}.png"
func Filename(prefix string, at time.Time) string {
	if prefix == "" {
		prefix = constant.DefaultDownloadPrefix
	}
	return prefix + "-" + strconv.FormatInt(at.UnixMilli(), 10) + constant.DownloadExtension
}

// Download fetches imageURL, stages the payload in a temporary file and
// passes it to saver. The temporary file is removed on every path. Failures
// are returned to the caller, which decides how to notify the user.
func (s *Service) Download(ctx context.Context, imageURL, prefix string, saver Saver) (*Result, error) {
	logger.CtxDebug(ctx, "Downloading QR code", logger.LoggerInfo{
		ContextFunction: constant.CtxDownload,
		Data: map[string]interface{}{
			constant.DataQRURL: imageURL,
		},
	})

	tmp, err := os.CreateTemp(s.tempDir, "qrgen-*"+constant.DownloadExtension)
	if err != nil {
		logger.CtxError(ctx, "Failed to create temporary file", logger.LoggerInfo{
			ContextFunction: constant.CtxDownload,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeDownloadTemp,
				Message: err.Error(),
				Type:    constant.ErrTypeStorage,
			},
		})
		return nil, fmt.Errorf("staging download: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, contentType, err := s.fetch(ctx, imageURL, tmp)
	if err != nil {
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding staged download: %w", err)
	}

	file := File{
		Name:        Filename(prefix, s.now()),
		ContentType: contentType,
		Size:        size,
		Content:     tmp,
	}
	if err := saver.Save(ctx, file); err != nil {
		logger.CtxError(ctx, "Failed to save QR code", logger.LoggerInfo{
			ContextFunction: constant.CtxDownload,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeDownloadSave,
				Message: err.Error(),
				Type:    constant.ErrTypeStorage,
			},
			Data: map[string]interface{}{
				constant.DataFilename: file.Name,
			},
		})
		return nil, fmt.Errorf("saving %s: %w", file.Name, err)
	}

	logger.CtxInfo(ctx, constant.MsgDownloadSucceeded, logger.LoggerInfo{
		ContextFunction: constant.CtxDownload,
		Data: map[string]interface{}{
			constant.DataFilename: file.Name,
			constant.DataBytes:    size,
		},
	})

	return &Result{
		Filename:    file.Name,
		Bytes:       size,
		ContentType: contentType,
	}, nil
}

// fetch copies the response body for imageURL into dst
func (s *Service) fetch(ctx context.Context, imageURL string, dst io.Writer) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.CtxWarn(ctx, "Download request failed", logger.LoggerInfo{
			ContextFunction: constant.CtxDownload,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeDownloadNetwork,
				Message: err.Error(),
				Type:    constant.ErrTypeNetwork,
			},
			Data: map[string]interface{}{
				constant.DataQRURL: imageURL,
			},
		})
		return 0, "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.CtxWarn(ctx, "Image service returned an error status", logger.LoggerInfo{
			ContextFunction: constant.CtxDownload,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeDownloadStatus,
				Message: resp.Status,
				Type:    constant.ErrTypeNetwork,
			},
			Data: map[string]interface{}{
				constant.DataQRURL:    imageURL,
				constant.DataHTTPCode: resp.StatusCode,
			},
		})
		return 0, "", &StatusError{StatusCode: resp.StatusCode, URL: imageURL}
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	contentType := resp.Header.Get(constant.HeaderContentType)
	if contentType == "" {
		contentType = "image/png"
	}
	return n, contentType, nil
}
