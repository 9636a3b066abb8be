package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/history"
	"github.com/prasetyowira/qrgen/domain/qr"
	"github.com/prasetyowira/qrgen/infrastructure/logger"
)

// History is the part of the history store the controller writes to
type History interface {
	Add(ctx context.Context, record history.Record) error
}

// Result is the current-result view of one successful generation. It is
// handed to the caller instead of being kept in shared state.
type Result struct {
	Record      history.Record `json:"record" yaml:"record"`
	ImageURL    string         `json:"image_url" yaml:"image_url"`
	SourceURL   string         `json:"source_url" yaml:"source_url"`
	GeneratedOn string         `json:"generated_on" yaml:"generated_on"`
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithIDGenerator replaces the uuid-based record id source
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) {
		c.newID = newID
	}
}

// WithLocation sets the zone display dates are rendered in
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		c.loc = loc
	}
}

// Controller runs validate, build, record for one generation request
type Controller struct {
	builder *qr.Builder
	history History
	now     func() time.Time
	newID   func() string
	loc     *time.Location
}

// NewController creates a generation controller
func NewController(builder *qr.Builder, hist History, opts ...Option) *Controller {
	c := &Controller{
		builder: builder,
		history: hist,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate validates urlText, derives the image address and appends the
// record to history. Validation errors leave history untouched. No network
// request is made here; the image is fetched by whoever displays it.
func (c *Controller) Generate(ctx context.Context, urlText string, size int) (*Result, error) {
	logger.CtxDebug(ctx, "Generating QR code", logger.LoggerInfo{
		ContextFunction: constant.CtxGenerate,
		Data: map[string]interface{}{
			constant.DataURL:  urlText,
			constant.DataSize: size,
		},
	})

	req, err := c.builder.Build(urlText, size)
	if err != nil {
		logger.CtxWarn(ctx, "Rejected QR code request", logger.LoggerInfo{
			ContextFunction: constant.CtxGenerate,
			Error: &logger.CustomError{
				Code:    validationCode(err),
				Message: err.Error(),
				Type:    constant.ErrTypeValidation,
			},
			Data: map[string]interface{}{
				constant.DataURL:  urlText,
				constant.DataSize: size,
			},
		})
		return nil, err
	}

	now := c.now()
	local := now.In(c.loc)
	record := history.Record{
		ID:              c.newID(),
		URL:             req.ValidatedURL,
		ImageRequestURL: req.RequestURL,
		Size:            req.Size,
		Timestamp:       now.UTC().Format(constant.TimestampLayout),
		DisplayDate:     local.Format(constant.DisplayDateLayout),
	}

	if err := c.history.Add(ctx, record); err != nil {
		logger.CtxError(ctx, "Failed to save QR code to history", logger.LoggerInfo{
			ContextFunction: constant.CtxGenerate,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeHistoryWrite,
				Message: err.Error(),
				Type:    constant.ErrTypeStorage,
			},
			Data: map[string]interface{}{
				constant.DataURL: record.URL,
			},
		})
		return nil, err
	}

	logger.CtxInfo(ctx, "QR code generated", logger.LoggerInfo{
		ContextFunction: constant.CtxGenerate,
		Data: map[string]interface{}{
			constant.DataURL:      record.URL,
			constant.DataQRURL:    record.ImageRequestURL,
			constant.DataRecordID: record.ID,
		},
	})

	return &Result{
		Record:      record,
		ImageURL:    record.ImageRequestURL,
		SourceURL:   record.URL,
		GeneratedOn: "Generated on " + local.Format(constant.DayLayout) + " at " + local.Format(constant.ClockLayout),
	}, nil
}

func validationCode(err error) string {
	if errors.Is(err, qr.ErrInvalidSize) {
		return constant.ErrCodeInvalidSize
	}
	return constant.ErrCodeInvalidURL
}
