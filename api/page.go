package api

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/generation"
	"github.com/prasetyowira/qrgen/domain/render"
	appLogger "github.com/prasetyowira/qrgen/infrastructure/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

// notices maps the ?msg= value of a post-redirect-get to its notification
var notices = map[string]string{
	"deleted": constant.MsgHistoryItemDeleted,
	"cleared": constant.MsgHistoryCleared,
}

type pageData struct {
	Sizes        []int
	SelectedSize int
	URL          string
	Current      *generation.Result
	View         *render.View
	Message      string
	Error        string
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		tmpl: template.Must(template.ParseFS(templateFS, "templates/index.html")),
	}
}

func (p *pageRenderer) write(ctx context.Context, w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		appLogger.CtxError(ctx, "Failed to render page", appLogger.LoggerInfo{
			ContextFunction: constant.CtxPage,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeAPITemplate,
				Message: err.Error(),
				Type:    constant.ErrTypeAPI,
			},
		})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set(constant.HeaderContentType, "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPage fills in the history view and writes the page
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	ctx := r.Context()

	view, err := h.renderer.Render(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.writeDomainError(ctx, w, constant.CtxPage, err)
		return
	}

	data.View = view
	data.Sizes = h.settings.AllowedSizes
	if data.SelectedSize == 0 {
		data.SelectedSize = h.settings.AllowedSizes.Default()
	}

	appLogger.CtxDebug(ctx, constant.MsgRenderingPage, appLogger.LoggerInfo{
		ContextFunction: constant.CtxPage,
		Data: map[string]interface{}{
			constant.DataCount:  len(view.Entries),
			constant.DataStatus: status,
		},
	})
	h.page.write(ctx, w, status, data)
}

// Page shows the generator form and the history grid
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{
		Message: notices[r.URL.Query().Get("msg")],
	})
}

// GenerateForm handles the generator form and shows the new code as the current result
func (h *Handler) GenerateForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	urlText := r.FormValue("url")

	size, err := strconv.Atoi(r.FormValue("size"))
	if err != nil || !h.settings.AllowedSizes.Allowed(size) {
		h.renderPage(w, r, http.StatusBadRequest, pageData{
			URL:   urlText,
			Error: errSizeNotAllowed.Error(),
		})
		return
	}

	result, err := h.generator.Generate(ctx, urlText, size)
	if err != nil {
		status, message := statusFor(err)
		h.renderPage(w, r, status, pageData{
			URL:          urlText,
			SelectedSize: size,
			Error:        message,
		})
		return
	}

	h.renderPage(w, r, http.StatusOK, pageData{
		SelectedSize: size,
		Current:      result,
	})
}

// DeleteForm removes one history entry and redirects back to the page
func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.renderPage(w, r, http.StatusBadRequest, pageData{Error: "Invalid history index"})
		return
	}

	action := render.Action{
		Kind:     render.ActionDelete,
		Index:    index,
		RecordID: r.FormValue("id"),
	}
	if _, err := h.renderer.Perform(ctx, action, nil); err != nil {
		status, message := statusFor(err)
		h.renderPage(w, r, status, pageData{Error: message})
		return
	}

	http.Redirect(w, r, constant.RoutePage+"?msg=deleted", http.StatusSeeOther)
}

// ClearForm wipes the history and redirects back to the page
func (h *Handler) ClearForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.history.Clear(ctx); err != nil {
		status, message := statusFor(err)
		h.renderPage(w, r, status, pageData{Error: message})
		return
	}

	http.Redirect(w, r, constant.RoutePage+"?msg=cleared", http.StatusSeeOther)
}
