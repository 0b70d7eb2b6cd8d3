package fiber_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/logger"
	adapter "github.com/GoStorefront-Admin/GoStorefront-Admin/internal/logger/adapter/fiber"
)

// accessLine is the json shape of one access log entry.
type accessLine struct {
	IP     net.IP `json:"IP"`
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Host   string `json:"host"`
}

func consoleConfig() adapter.Config {
	return adapter.Config{
		Config: logger.Log{
			EnableAccessLogToConsole: true,
			Console:                  logger.Console{Enabled: true},
		},
	}
}

func TestNew(t *testing.T) {
	checkAlive := consoleConfig()
	checkAlive.Config.DisableCheckAlive = true
	checkAlive.CheckAliveURI = "/checkalive"

	consoleDisabled := consoleConfig()
	consoleDisabled.Config.Console.Enabled = false

	tests := []struct {
		name       string
		config     adapter.Config
		targetPath string
		want       *accessLine
	}{
		{
			name:       "empty config no output at all",
			targetPath: "/",
		},
		{
			name:       "access log to console needs console enabled",
			config:     consoleDisabled,
			targetPath: "/",
		},
		{
			name:       "get root",
			config:     consoleConfig(),
			targetPath: "/",
			want:       &accessLine{Status: fiber.StatusOK, URI: "/"},
		},
		{
			name:       "unknown route",
			config:     consoleConfig(),
			targetPath: "/admin/unknown",
			want:       &accessLine{Status: fiber.StatusNotFound, URI: "/admin/unknown"},
		},
		{
			name:       "query string is kept",
			config:     consoleConfig(),
			targetPath: "/?type=login.failure&page=2",
			want:       &accessLine{Status: fiber.StatusOK, URI: "/?type=login.failure&page=2"},
		},
		{
			name:       "double slashes are logged unchanged",
			config:     consoleConfig(),
			targetPath: "/admin//roles?x=1",
			want:       &accessLine{Status: fiber.StatusNotFound, URI: "/admin//roles?x=1"},
		},
		{
			name:       "checkalive is not logged",
			config:     checkAlive,
			targetPath: "/checkalive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := testMiddlewareHelper(t, tt.targetPath, tt.config)
			require.NoError(t, err)

			if tt.want == nil {
				assert.Empty(t, output)
				return
			}

			require.NotEmpty(t, output)

			var line accessLine
			require.NoError(t, json.Unmarshal([]byte(output), &line))

			assert.Equal(t, "example.com", line.Host)
			assert.Equal(t, fiber.MethodGet, line.Method)
			assert.Equal(t, tt.want.Status, line.Status)
			assert.Equal(t, net.ParseIP("0.0.0.0"), line.IP)
			assert.Equal(t, tt.want.URI, line.URI)
		})
	}
}

func TestNewWritesAccessFile(t *testing.T) {
	dir := t.TempDir()

	app := fiber.New()
	app.Use(adapter.New(adapter.Config{
		Config: logger.Log{
			File: logger.LogFile{Enabled: true, Path: dir, AccessLog: "access.log"},
		},
	}))
	app.Get("/checkalive", func(c *fiber.Ctx) error { return c.SendString("OK") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/checkalive", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Performance"))

	data, err := os.ReadFile(filepath.Join(dir, "access.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"URI":"/checkalive"`)
}

func testMiddlewareHelper(t *testing.T, targetPath string, adapterConfig adapter.Config) (string, error) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	// capture stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		Immutable:     true,
	})

	app.Use(adapter.New(adapterConfig))

	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("storefront")
	})
	app.Get("/checkalive", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, targetPath, nil), 100000)

	outC := make(chan string)
	// copy the output in a separate goroutine so printing can't block indefinitely
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout
	os.Stderr = stderr

	return <-outC, err
}

func TestNewRequestIDAndUser(t *testing.T) {
	dir := t.TempDir()

	app := fiber.New()
	app.Use(adapter.New(adapter.Config{
		Config: logger.Log{
			File: logger.LogFile{Enabled: true, Path: dir, AccessLog: "access.log"},
		},
		UserID: func(c *fiber.Ctx) (uint64, bool) {
			id, ok := c.Locals("uid").(uint64)
			return id, ok
		},
	}))
	app.Get("/account", func(c *fiber.Ctx) error {
		c.Locals("uid", uint64(7))
		return c.SendString("me")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/account", nil)
	req.Header.Set(adapter.HeaderRequestID, "req-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(adapter.HeaderRequestID))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/account", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(adapter.HeaderRequestID), 36)

	data, err := os.ReadFile(filepath.Join(dir, "access.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"req-1"`)
	assert.Contains(t, string(data), `"user_id":7`)
}
