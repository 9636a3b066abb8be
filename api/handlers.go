package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prasetyowira/qrgen/config"
	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/download"
	"github.com/prasetyowira/qrgen/domain/generation"
	"github.com/prasetyowira/qrgen/domain/history"
	"github.com/prasetyowira/qrgen/domain/qr"
	"github.com/prasetyowira/qrgen/domain/render"
	appLogger "github.com/prasetyowira/qrgen/infrastructure/logger"
)

// ErrForeignImageURL is returned when a download targets another host than the image service
var ErrForeignImageURL = errors.New(constant.ErrForeignImageURL)

// errSizeNotAllowed is returned for sizes outside the configured choices
var errSizeNotAllowed = errors.New(constant.ErrSizeNotAllowed)

// Generator creates QR generations
type Generator interface {
	Generate(ctx context.Context, urlText string, size int) (*generation.Result, error)
}

// HistoryRenderer renders the history grid and runs its actions
type HistoryRenderer interface {
	Render(ctx context.Context, query string) (*render.View, error)
	Perform(ctx context.Context, action render.Action, saver download.Saver) (*render.Outcome, error)
}

// HistoryClearer wipes the history
type HistoryClearer interface {
	Clear(ctx context.Context) error
}

// Downloader fetches images for the download-current action
type Downloader interface {
	Download(ctx context.Context, imageURL, prefix string, saver download.Saver) (*download.Result, error)
}

// Settings are the request-independent knobs of the handlers
type Settings struct {
	AllowedSizes   config.Sizes
	ServiceBase    string
	DownloadPrefix string
}

// Handler contains service dependencies for API handlers
type Handler struct {
	generator  Generator
	renderer   HistoryRenderer
	history    HistoryClearer
	downloader Downloader
	settings   Settings
	page       *pageRenderer
}

// GenerateRequest is the request object for the Generate endpoint
type GenerateRequest struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// NewHandler creates a new API handler
func NewHandler(generator Generator, renderer HistoryRenderer, hist HistoryClearer, downloader Downloader, settings Settings) *Handler {
	if settings.DownloadPrefix == "" {
		settings.DownloadPrefix = constant.DefaultDownloadPrefix
	}
	return &Handler{
		generator:  generator,
		renderer:   renderer,
		history:    hist,
		downloader: downloader,
		settings:   settings,
		page:       newPageRenderer(),
	}
}

// Generate handles JSON QR generation requests
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		appLogger.CtxWarn(ctx, "Error decoding request body", appLogger.LoggerInfo{
			ContextFunction: constant.CtxGenerate,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeAPIDecodeRequest,
				Message: err.Error(),
				Type:    constant.ErrTypeAPI,
			},
		})
		WriteJSONError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if !h.settings.AllowedSizes.Allowed(req.Size) {
		h.writeDomainError(ctx, w, constant.CtxGenerate, fmt.Errorf("%w: %d", errSizeNotAllowed, req.Size))
		return
	}

	result, err := h.generator.Generate(ctx, req.URL, req.Size)
	if err != nil {
		h.writeDomainError(ctx, w, constant.CtxGenerate, err)
		return
	}

	WriteJSON(w, result, http.StatusCreated)
}

// ListHistory returns the rendered history, optionally filtered by ?q=
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.renderer.Render(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.writeDomainError(ctx, w, constant.CtxRender, err)
		return
	}

	WriteJSON(w, view, http.StatusOK)
}

// ClearHistory deletes every history entry
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.history.Clear(ctx); err != nil {
		h.writeDomainError(ctx, w, constant.CtxHistoryClear, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteHistoryItem removes the entry at {index}; ?id= guards against stale positions
func (h *Handler) DeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	action, ok := actionFromRequest(w, r, render.ActionDelete)
	if !ok {
		return
	}

	outcome, err := h.renderer.Perform(ctx, action, nil)
	if err != nil {
		h.writeDomainError(ctx, w, constant.CtxHistoryDel, err)
		return
	}

	WriteJSON(w, outcome, http.StatusOK)
}

// DownloadHistoryItem streams the image of the entry at {index} as an attachment
func (h *Handler) DownloadHistoryItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	action, ok := actionFromRequest(w, r, render.ActionDownload)
	if !ok {
		return
	}

	saver := &attachmentSaver{w: w}
	if _, err := h.renderer.Perform(ctx, action, saver); err != nil {
		if saver.started {
			// Headers are already out; all we can do is log
			appLogger.CtxError(ctx, "Download interrupted", appLogger.LoggerInfo{
				ContextFunction: constant.CtxDownload,
				Error: &appLogger.CustomError{
					Code:    constant.ErrCodeDownloadSave,
					Message: err.Error(),
					Type:    constant.ErrTypeAPI,
				},
			})
			return
		}
		h.writeDomainError(ctx, w, constant.CtxDownload, err)
	}
}

// DownloadImage streams the image at ?url=, which must belong to the image service
func (h *Handler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	imageURL := r.URL.Query().Get("url")

	if !underBase(h.settings.ServiceBase, imageURL) {
		appLogger.CtxWarn(ctx, "Rejected download of foreign URL", appLogger.LoggerInfo{
			ContextFunction: constant.CtxDownload,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeAPIBadParam,
				Message: constant.ErrForeignImageURL,
				Type:    constant.ErrTypeAPI,
			},
			Data: map[string]interface{}{
				constant.DataQRURL: imageURL,
			},
		})
		WriteJSONError(w, ErrForeignImageURL.Error(), http.StatusBadRequest)
		return
	}

	saver := &attachmentSaver{w: w}
	if _, err := h.downloader.Download(ctx, imageURL, h.settings.DownloadPrefix, saver); err != nil && !saver.started {
		h.writeDomainError(ctx, w, constant.CtxDownload, err)
	}
}

// underBase reports whether raw points at the same scheme and host as base,
// with a path inside base's path
func underBase(base, raw string) bool {
	if raw == "" {
		return false
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.User != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, b.Scheme) || !strings.EqualFold(u.Host, b.Host) {
		return false
	}

	dir := b.Path
	if dir == "" || strings.HasSuffix(dir, "/") {
		return strings.HasPrefix(u.Path, dir)
	}
	return u.Path == dir || strings.HasPrefix(u.Path, dir+"/")
}

// actionFromRequest reads {index} and ?id= into an action binding
func actionFromRequest(w http.ResponseWriter, r *http.Request, kind render.ActionKind) (render.Action, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		appLogger.CtxWarn(r.Context(), "Invalid history index", appLogger.LoggerInfo{
			ContextFunction: constant.CtxHandler,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeAPIBadParam,
				Message: err.Error(),
				Type:    constant.ErrTypeAPI,
			},
		})
		WriteJSONError(w, "Invalid history index", http.StatusBadRequest)
		return render.Action{}, false
	}

	return render.Action{
		Kind:     kind,
		Index:    index,
		RecordID: r.URL.Query().Get("id"),
	}, true
}

// statusFor maps domain errors to an HTTP status and a safe message
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, qr.ErrInvalidURL):
		return http.StatusBadRequest, qr.ErrInvalidURL.Error()
	case errors.Is(err, qr.ErrInvalidSize):
		return http.StatusBadRequest, qr.ErrInvalidSize.Error()
	case errors.Is(err, errSizeNotAllowed):
		return http.StatusBadRequest, errSizeNotAllowed.Error()
	case errors.Is(err, history.ErrIndexOutOfRange):
		return http.StatusNotFound, constant.ErrRecordNotFound
	case errors.Is(err, history.ErrStaleIndex):
		return http.StatusConflict, history.ErrStaleIndex.Error()
	case errors.Is(err, download.ErrNetwork):
		return http.StatusBadGateway, download.ErrNetwork.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) writeDomainError(ctx context.Context, w http.ResponseWriter, fn string, err error) {
	status, message := statusFor(err)

	logFunc := appLogger.CtxWarn
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logFunc = appLogger.CtxError
	}
	logFunc(ctx, "Request failed", appLogger.LoggerInfo{
		ContextFunction: fn,
		Error: &appLogger.CustomError{
			Code:    constant.ErrCodeAPIServiceError,
			Message: err.Error(),
			Type:    constant.ErrTypeAPI,
		},
		Data: map[string]interface{}{
			constant.DataStatus: status,
		},
	})

	WriteJSONError(w, message, status)
}

// attachmentSaver writes a downloaded image to the response as a file attachment
type attachmentSaver struct {
	w       http.ResponseWriter
	started bool
}

func (a *attachmentSaver) Save(_ context.Context, file download.File) error {
	header := a.w.Header()
	header.Set(constant.HeaderContentType, file.ContentType)
	header.Set(constant.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	header.Set("Content-Length", strconv.FormatInt(file.Size, 10))

	a.started = true
	a.w.WriteHeader(http.StatusOK)
	_, err := io.Copy(a.w, file.Content)
	return err
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set(constant.HeaderContentType, "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONError writes a JSON error response
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	WriteJSON(w, ErrorResponse{
		Error: message,
		Code:  statusCode,
	}, statusCode)
}
