package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prasetyowira/qrgen/config"
	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/download"
	"github.com/prasetyowira/qrgen/domain/generation"
	"github.com/prasetyowira/qrgen/domain/history"
	"github.com/prasetyowira/qrgen/domain/qr"
	"github.com/prasetyowira/qrgen/domain/render"
	"github.com/prasetyowira/qrgen/infrastructure/cache"
	"github.com/prasetyowira/qrgen/infrastructure/db"
	appLogger "github.com/prasetyowira/qrgen/infrastructure/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// App holds the process-level dependencies so commands can be tested
type App struct {
	Out        io.Writer
	Err        io.Writer
	LoadConfig func() (config.Config, error)
	HTTPClient *http.Client
}

// DefaultApp wires the real environment
func DefaultApp() *App {
	return &App{
		Out:        os.Stdout,
		Err:        os.Stderr,
		LoadConfig: config.LoadConfig,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defer appLogger.Close()
	return newRootCmd(DefaultApp()).Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "qrgen",
		Short: "Generate QR codes for URLs and keep a history of them",
		Long: `qrgen turns URLs into QR code images using a QR Server compatible
image service and remembers the last 20 codes it generated.

Examples:
  qrgen serve
  qrgen generate https://example.com --size 300
  qrgen history list --query example --output yaml
  qrgen download 0 --dir ./codes`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("%s: %w", constant.MsgFailedToLoadConfig, err)
			}
			*cfg = loaded
			appLogger.Initialize(cfg.LogLevel)
			return nil
		},
	}

	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)
	cmd.AddCommand(
		newServeCmd(app, cfg),
		newGenerateCmd(app, cfg),
		newHistoryCmd(app, cfg),
		newDownloadCmd(app, cfg),
	)
	return cmd
}

// services is the object graph shared by every command
type services struct {
	storage    *db.SQLiteStorage
	store      *history.Store
	builder    *qr.Builder
	controller *generation.Controller
	downloader *download.Service
	renderer   *render.Renderer
}

func openServices(cfg *config.Config, client *http.Client) (*services, error) {
	storage, err := db.NewSQLiteStorage(cfg.DatabaseURL, cache.NewNamespaceLRU(cfg.CacheSize))
	if err != nil {
		appLogger.Error(constant.MsgFailedToInitDB, appLogger.LoggerInfo{
			ContextFunction: constant.CtxMain,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeAppDBInit,
				Message: err.Error(),
				Type:    constant.ErrTypeApp,
			},
			Data: map[string]interface{}{
				constant.DataDBPath: cfg.DatabaseURL,
			},
		})
		return nil, fmt.Errorf("%s: %w", constant.MsgFailedToInitDB, err)
	}

	store := history.NewStore(storage)
	builder := qr.NewBuilder(cfg.ServiceBase)
	downloader := download.NewService(client)

	return &services{
		storage:    storage,
		store:      store,
		builder:    builder,
		controller: generation.NewController(builder, store),
		downloader: downloader,
		renderer:   render.NewRenderer(store, downloader, cfg.DownloadPrefix),
	}, nil
}

func (s *services) Close() error {
	return s.storage.Close()
}
