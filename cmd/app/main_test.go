package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prasetyowira/qrgen/config"
	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/generation"
	"github.com/prasetyowira/qrgen/domain/history"
	"github.com/prasetyowira/qrgen/domain/qr"
	"github.com/prasetyowira/qrgen/domain/render"
	"github.com/prasetyowira/qrgen/infrastructure/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// testApp points every command at a fresh database and a local image service
func testApp(t *testing.T) (*App, config.Config) {
	t.Helper()

	images := httptest.NewServer(qrcode.NewGenerator())
	t.Cleanup(images.Close)

	cfg := config.Config{
		DatabaseURL:    filepath.Join(t.TempDir(), "qrgen.db"),
		ServiceBase:    images.URL + "/",
		AllowedSizes:   []int{100, 200, 300},
		CacheSize:      4,
		LogLevel:       "ERROR",
		DownloadPrefix: constant.DefaultDownloadPrefix,
		DownloadDir:    t.TempDir(),
	}

	app := &App{
		Out:        new(bytes.Buffer),
		Err:        new(bytes.Buffer),
		LoadConfig: func() (config.Config, error) { return cfg, nil },
		HTTPClient: images.Client(),
	}
	return app, cfg
}

func execute(app *App, args ...string) (string, error) {
	out := new(bytes.Buffer)
	app.Out = out

	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerate_Table(t *testing.T) {
	app, cfg := testApp(t)

	out, err := execute(app, "generate", "https://example.com")

	require.NoError(t, err)
	assert.Contains(t, out, cfg.ServiceBase+"?size=200x200&data=https%3A%2F%2Fexample.com")
	assert.Contains(t, out, "Source:   https://example.com")
	assert.Contains(t, out, "Generated on ")
}

func TestGenerate_JSON(t *testing.T) {
	app, cfg := testApp(t)

	out, err := execute(app, "generate", "https://example.com/path?q=1", "--size", "300", "--output", "json")
	require.NoError(t, err)

	var result generation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, strings.HasPrefix(result.ImageURL, cfg.ServiceBase+"?size=300x300&data="))
	assert.Equal(t, "https://example.com/path?q=1", result.SourceURL)
	assert.Equal(t, 300, result.Record.Size)
	assert.NotEmpty(t, result.Record.ID)
}

func TestGenerate_Rejections(t *testing.T) {
	app, _ := testApp(t)

	_, err := execute(app, "generate", "https://example.com", "--size", "250")
	assert.ErrorContains(t, err, constant.ErrSizeNotAllowed)

	_, err = execute(app, "generate", "example.com")
	assert.ErrorIs(t, err, qr.ErrInvalidURL)

	_, err = execute(app, "generate", "https://example.com", "--output", "xml")
	assert.ErrorContains(t, err, "invalid output format")

	out, err := execute(app, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, constant.EmptyHistoryText)
}

func TestHistoryList(t *testing.T) {
	app, _ := testApp(t)
	_, err := execute(app, "generate", "https://example.com")
	require.NoError(t, err)
	_, err = execute(app, "generate", "https://golang.org/doc/effective_go")
	require.NoError(t, err)

	out, err := execute(app, "history", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "https://golang.org/doc/effective_go")
	assert.Contains(t, lines[2], "https://example.com")

	out, err = execute(app, "history", "list", "--query", "exmpl")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 entries match \"exmpl\"")
	assert.NotContains(t, out, "golang.org")

	out, err = execute(app, "history", "list", "--query", "zzzz")
	require.NoError(t, err)
	assert.Contains(t, out, constant.NoMatchesText)
	assert.Contains(t, out, "0 of 2 entries match \"zzzz\"")
}

func TestCreated(t *testing.T) {
	recent := time.Now().Add(-3 * time.Hour).UTC().Format(constant.TimestampLayout)

	assert.Equal(t, "3 hours ago", created(render.Entry{Timestamp: recent, Date: "ignored"}))
	assert.Equal(t, "18.10.2026 09:00", created(render.Entry{Timestamp: "", Date: "18.10.2026 09:00"}))
}

func TestHistoryList_YAML(t *testing.T) {
	app, _ := testApp(t)
	_, err := execute(app, "generate", "https://example.com")
	require.NoError(t, err)

	out, err := execute(app, "history", "list", "-o", "yaml")
	require.NoError(t, err)

	var view render.View
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "https://example.com", view.Entries[0].URL)
	assert.Equal(t, 0, view.Entries[0].Index)
	assert.Len(t, view.Entries[0].Actions, 2)
}

func TestHistoryDelete(t *testing.T) {
	app, _ := testApp(t)
	_, err := execute(app, "generate", "https://example.com")
	require.NoError(t, err)
	_, err = execute(app, "generate", "https://example.org")
	require.NoError(t, err)

	out, err := execute(app, "history", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, constant.MsgHistoryItemDeleted)
	assert.Contains(t, out, "1 entry left")

	_, err = execute(app, "history", "delete", "5")
	assert.ErrorIs(t, err, history.ErrIndexOutOfRange)

	_, err = execute(app, "history", "delete", "0", "--id", "not-the-id")
	assert.ErrorIs(t, err, history.ErrStaleIndex)

	_, err = execute(app, "history", "delete", "first")
	assert.ErrorContains(t, err, "invalid history index")
}

func TestHistoryClear(t *testing.T) {
	app, _ := testApp(t)
	_, err := execute(app, "generate", "https://example.com")
	require.NoError(t, err)

	out, err := execute(app, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, constant.MsgHistoryCleared)

	out, err = execute(app, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, constant.EmptyHistoryText)
}

func TestDownload(t *testing.T) {
	app, _ := testApp(t)
	_, err := execute(app, "generate", "https://example.com", "--size", "100")
	require.NoError(t, err)

	dir := t.TempDir()
	out, err := execute(app, "download", "0", "--dir", dir, "--prefix", "code")
	require.NoError(t, err)
	assert.Contains(t, out, constant.MsgDownloadSucceeded)
	assert.Contains(t, out, "Saved ")

	matches, err := filepath.Glob(filepath.Join(dir, "code-*.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestDownload_OutOfRange(t *testing.T) {
	app, _ := testApp(t)

	_, err := execute(app, "download", "0")

	assert.ErrorIs(t, err, history.ErrIndexOutOfRange)
}

func TestConfigErrorIsReported(t *testing.T) {
	app, _ := testApp(t)
	app.LoadConfig = func() (config.Config, error) { return config.Config{}, errors.New("bad yaml") }

	_, err := execute(app, "history", "list")

	assert.ErrorContains(t, err, constant.MsgFailedToLoadConfig)
	assert.ErrorContains(t, err, "bad yaml")
}

func TestNewServer(t *testing.T) {
	_, cfg := testApp(t)
	cfg.StubService = true

	svc, err := openServices(&cfg, nil)
	require.NoError(t, err)
	defer svc.Close()

	server := newServer(&cfg, svc)
	assert.Equal(t, ":0", server.Addr)

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, constant.MsgHealthy, w.Body.String())

	w = httptest.NewRecorder()
	server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stub/create-qr-code/?size=100x100&data=hello", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get(constant.HeaderContentType))
}
