package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	appMiddleware "github.com/prasetyowira/qrgen/api/middleware"
	"github.com/prasetyowira/qrgen/constant"
	appLogger "github.com/prasetyowira/qrgen/infrastructure/logger"
)

// RouteHandler is the set of endpoints the router dispatches to
type RouteHandler interface {
	Page(w http.ResponseWriter, r *http.Request)
	GenerateForm(w http.ResponseWriter, r *http.Request)
	DeleteForm(w http.ResponseWriter, r *http.Request)
	ClearForm(w http.ResponseWriter, r *http.Request)
	Generate(w http.ResponseWriter, r *http.Request)
	ListHistory(w http.ResponseWriter, r *http.Request)
	ClearHistory(w http.ResponseWriter, r *http.Request)
	DeleteHistoryItem(w http.ResponseWriter, r *http.Request)
	DownloadHistoryItem(w http.ResponseWriter, r *http.Request)
	DownloadImage(w http.ResponseWriter, r *http.Request)
}

// Router represents the application router
type Router struct {
	handler RouteHandler
	router  *chi.Mux
	stub    http.Handler
}

// NewRouter creates a new router. stub, when not nil, is mounted as a
// local stand-in for the image service.
func NewRouter(handler RouteHandler, stub http.Handler) *Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(appMiddleware.RequestLogger())

	return &Router{
		handler: handler,
		router:  r,
		stub:    stub,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() {
	appLogger.Info(constant.MsgSettingUpRoutes, appLogger.LoggerInfo{
		ContextFunction: constant.CtxRouter,
		Data: map[string]interface{}{
			constant.DataStub: r.stub != nil,
		},
	})

	// Page and its forms
	r.router.Get(constant.RoutePage, r.handler.Page)
	r.router.Post(constant.RouteGenerateForm, r.handler.GenerateForm)
	r.router.Post(constant.RouteDeleteForm, r.handler.DeleteForm)
	r.router.Post(constant.RouteClearForm, r.handler.ClearForm)

	// JSON API
	r.router.Post(constant.RouteGenerate, r.handler.Generate)
	r.router.Get(constant.RouteHistory, r.handler.ListHistory)
	r.router.Delete(constant.RouteHistory, r.handler.ClearHistory)
	r.router.Delete(constant.RouteHistoryItem, r.handler.DeleteHistoryItem)
	r.router.Get(constant.RouteHistoryDownload, r.handler.DownloadHistoryItem)
	r.router.Get(constant.RouteDownload, r.handler.DownloadImage)

	if r.stub != nil {
		r.router.Method(http.MethodGet, constant.RouteStubService, r.stub)
	}

	// Healthcheck
	r.router.Get(constant.RouteHealthcheck, func(w http.ResponseWriter, r *http.Request) {
		appLogger.CtxDebug(r.Context(), constant.MsgHealthcheckRequest, appLogger.LoggerInfo{
			ContextFunction: constant.CtxRouter,
		})

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(constant.MsgHealthy))
	})
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
