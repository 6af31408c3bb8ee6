package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/host"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/paint"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/transform"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
)

const helloSource = `
import React from 'react';
import { View, Text } from 'react-native';

export default function App() {
  console.log('hello from render');
  return (
    <View style={{ flex: 1, backgroundColor: '#ff0000' }}>
      <Text>Hello</Text>
    </View>
  );
}
`

type renderBody struct {
	ID    string `json:"id"`
	Tree  *struct {
		Children []struct {
			Text string `json:"text"`
		} `json:"children"`
	} `json:"tree"`
	Logs []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	} `json:"logs"`
	Error string `json:"error"`
	Phase string `json:"phase"`
}

func setupRouter(t *testing.T, cfg Config) (*gin.Engine, *monitoring.Metrics) {
	t.Helper()
	return setupRouterWithSessions(t, cfg, session.NewManager())
}

func setupRouterWithSessions(t *testing.T, cfg Config, sessions *session.Manager) (*gin.Engine, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	esbuild := transform.NewEsbuild()
	pool, err := host.NewPool(context.Background(), host.Options{Config: host.DefaultConfig(), Transformer: esbuild}, 2, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	painter, err := paint.NewPainter("#ffffff", nil)
	require.NoError(t, err)

	exporter, err := paint.NewHTML("#ffffff", nil)
	require.NoError(t, err)

	modules, err := registry.NewManager(registry.Options{Dir: t.TempDir(), MaxModules: 2})
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	h := NewHandlers(cfg, pool, painter, Options{
		HTML:        exporter,
		Transformer: esbuild,
		Metrics:     metrics,
		Modules:     modules,
		Sessions:    sessions,
	})

	router := gin.New()
	router.GET("/health", h.Health)
	router.POST("/render", h.Render)
	router.POST("/render/png", h.RenderPNG)
	router.POST("/render/html", h.RenderHTML)
	router.GET("/metrics/summary", h.MetricsSummary)
	router.GET("/modules", h.ListModules)
	router.GET("/modules/:id", h.GetModule)
	router.PUT("/modules/:id", h.PutModule)
	router.DELETE("/modules/:id", h.DeleteModule)
	router.POST("/modules/:id/render", h.RenderModule)
	router.GET("/sessions", h.ListSessions)
	router.GET("/sessions/:id", h.GetSession)
	router.GET("/sessions/:id/tree", h.SessionTree)
	router.DELETE("/sessions/:id", h.TerminateSession)
	return router, metrics
}

func do(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func renderJSON(t *testing.T, source string, width, height float64) []byte {
	t.Helper()
	data, err := json.Marshal(RenderRequest{Source: source, Width: width, Height: height})
	require.NoError(t, err)
	return data
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, Config{})

	w := do(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "esbuild", body["transformer"])
	assert.Equal(t, 2.0, body["pool"].(map[string]any)["available"])
}

func TestRender(t *testing.T) {
	router, _ := setupRouter(t, Config{})

	w := do(router, http.MethodPost, "/render", renderJSON(t, helloSource, 200, 100))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body renderBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.ID, "rnd_"))
	require.NotNil(t, body.Tree)
	require.Len(t, body.Tree.Children, 1)
	assert.Equal(t, "Hello", body.Tree.Children[0].Text)
	messages := make([]string, 0, len(body.Logs))
	for _, l := range body.Logs {
		messages = append(messages, l.Message)
	}
	assert.Contains(t, messages, "hello from render")
	assert.Empty(t, body.Error)
}

func TestRenderFailures(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		body       []byte
		wantStatus int
		wantPhase  string
		wantError  string
	}{
		{
			name:       "syntax error",
			body:       renderJSON(t, "export default function App( {", 100, 100),
			wantStatus: http.StatusUnprocessableEntity,
			wantPhase:  "transform",
		},
		{
			name:       "missing default export",
			body:       renderJSON(t, "export const x = 1", 100, 100),
			wantStatus: http.StatusUnprocessableEntity,
			wantPhase:  "evaluate",
		},
		{
			name:       "missing source",
			body:       []byte(`{"width": 10}`),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request",
		},
		{
			name:       "negative width",
			body:       renderJSON(t, helloSource, -1, 100),
			wantStatus: http.StatusBadRequest,
			wantError:  "width must not be negative",
		},
		{
			name:       "too wide",
			cfg:        Config{MaxWidth: 500},
			body:       renderJSON(t, helloSource, 501, 100),
			wantStatus: http.StatusBadRequest,
			wantError:  "exceeds maximum",
		},
		{
			name:       "source too large",
			cfg:        Config{MaxSourceBytes: 32},
			body:       renderJSON(t, helloSource, 100, 100),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "source too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupRouter(t, tt.cfg)

			w := do(router, http.MethodPost, "/render", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var body renderBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.wantPhase != "" {
				assert.Equal(t, tt.wantPhase, body.Phase)
			}
			if tt.wantError != "" {
				assert.Contains(t, body.Error, tt.wantError)
			}
		})
	}
}

func TestRenderPNG(t *testing.T) {
	router, _ := setupRouter(t, Config{})

	w := do(router, http.MethodPost, "/render/png?width=120&height=80", []byte(helloSource))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Render-ID"), "rnd_"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())

	r, g, b, _ := img.At(110, 70).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b}, "root fill is painted")
}

func TestRenderPNGRejects(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       []byte
		wantStatus int
	}{
		{"bad width", "/render/png?width=abc", []byte(helloSource), http.StatusBadRequest},
		{"binary body", "/render/png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00"), http.StatusBadRequest},
		{"render failure", "/render/png", []byte("export default 42"), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupRouter(t, Config{})

			w := do(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestMetricsSummary(t *testing.T) {
	router, metrics := setupRouter(t, Config{})
	metrics.RecordHTTPRequest("POST", "/render", "200", 100*time.Millisecond, 10, 20)

	w := do(router, http.MethodGet, "/metrics/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metrics monitoring.MetricsSnapshot `json:"metrics"`
		Avg     float64                    `json:"avg_request_duration"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Metrics.TotalRequests)
	assert.InDelta(t, 0.1, body.Avg, 1e-9)
}

func TestRenderHTML(t *testing.T) {
	router, _ := setupRouter(t, Config{})

	w := do(router, http.MethodPost, "/render/html?width=120&height=80", []byte(helloSource))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	id := w.Header().Get("X-Render-ID")
	assert.True(t, strings.HasPrefix(id, "rnd_"))

	doc, err := htmlquery.Parse(w.Body)
	require.NoError(t, err)
	assert.Equal(t, "render "+id, htmlquery.InnerText(htmlquery.FindOne(doc, "//title")))

	root := htmlquery.FindOne(doc, `//div[@data-kind="View"]`)
	require.NotNil(t, root)
	assert.Contains(t, htmlquery.SelectAttr(root, "style"), "background-color: #ff0000")

	text := htmlquery.FindOne(doc, `//div[@data-kind="Text"]`)
	require.NotNil(t, text)
	assert.Equal(t, "Hello", strings.TrimSpace(htmlquery.InnerText(text)))
}

func moduleJSON(t *testing.T, req ModuleRequest) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestModuleLifecycle(t *testing.T) {
	router, _ := setupRouter(t, Config{})
	hello := ModuleRequest{Name: "Hello", Tags: []string{"demo"}, Width: 120, Height: 80, Source: helloSource}

	w := do(router, http.MethodPut, "/modules/hello", moduleJSON(t, hello))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	hello.Description = "says hello"
	w = do(router, http.MethodPut, "/modules/hello", moduleJSON(t, hello))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/modules?tag=demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Modules []registry.Metadata `json:"modules"`
		Stats   registry.Stats      `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Modules, 1)
	assert.Equal(t, "says hello", list.Modules[0].Description)
	assert.Equal(t, 1, list.Stats.Modules)

	w = do(router, http.MethodGet, "/modules?tag=other", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Modules)

	w = do(router, http.MethodGet, "/modules/hello", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mod registry.Module
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mod))
	assert.Equal(t, helloSource, mod.Source)
	assert.NotEmpty(t, mod.Hash)

	w = do(router, http.MethodDelete, "/modules/hello", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(router, http.MethodGet, "/modules/hello", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(router, http.MethodDelete, "/modules/hello", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutModuleRejects(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		id         string
		body       []byte
		wantStatus int
	}{
		{"bad id", Config{}, "Bad.ID", moduleJSON(t, ModuleRequest{Source: helloSource}), http.StatusBadRequest},
		{"missing source", Config{}, "ok", []byte(`{"name":"x"}`), http.StatusBadRequest},
		{"negative width", Config{}, "ok", moduleJSON(t, ModuleRequest{Source: helloSource, Width: -5}), http.StatusBadRequest},
		{"source too large", Config{MaxSourceBytes: 32}, "ok", moduleJSON(t, ModuleRequest{Source: helloSource}), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupRouter(t, tt.cfg)
			w := do(router, http.MethodPut, "/modules/"+tt.id, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestPutModuleFull(t *testing.T) {
	router, _ := setupRouter(t, Config{})
	body := moduleJSON(t, ModuleRequest{Source: helloSource})

	for _, id := range []string{"one", "two"} {
		require.Equal(t, http.StatusCreated, do(router, http.MethodPut, "/modules/"+id, body).Code)
	}
	assert.Equal(t, http.StatusInsufficientStorage, do(router, http.MethodPut, "/modules/three", body).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPut, "/modules/one", body).Code, "replacing fits")
}

func TestRenderModule(t *testing.T) {
	router, _ := setupRouter(t, Config{})
	body := moduleJSON(t, ModuleRequest{Name: "Hello", Width: 120, Height: 80, Source: helloSource})
	require.Equal(t, http.StatusCreated, do(router, http.MethodPut, "/modules/hello", body).Code)

	t.Run("json", func(t *testing.T) {
		w := do(router, http.MethodPost, "/modules/hello/render", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var rb renderBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rb))
		require.NotNil(t, rb.Tree)
		assert.Equal(t, "Hello", rb.Tree.Children[0].Text)
	})

	t.Run("png uses module size", func(t *testing.T) {
		w := do(router, http.MethodPost, "/modules/hello/render?format=png", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		img, err := png.Decode(w.Body)
		require.NoError(t, err)
		assert.Equal(t, 120, img.Bounds().Dx())
		assert.Equal(t, 80, img.Bounds().Dy())
	})

	t.Run("png size override", func(t *testing.T) {
		w := do(router, http.MethodPost, "/modules/hello/render?format=png&width=60", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		img, err := png.Decode(w.Body)
		require.NoError(t, err)
		assert.Equal(t, 60, img.Bounds().Dx())
		assert.Equal(t, 80, img.Bounds().Dy())
	})

	t.Run("html", func(t *testing.T) {
		w := do(router, http.MethodPost, "/modules/hello/render?format=html", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		doc, err := htmlquery.Parse(w.Body)
		require.NoError(t, err)
		assert.Equal(t, "Hello", htmlquery.InnerText(htmlquery.FindOne(doc, "//title")))
	})

	t.Run("unknown format", func(t *testing.T) {
		w := do(router, http.MethodPost, "/modules/hello/render?format=gif", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown module", func(t *testing.T) {
		w := do(router, http.MethodPost, "/modules/missing/render", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSessions(t *testing.T) {
	sessions := session.NewManager()
	router, _ := setupRouterWithSessions(t, Config{}, sessions)

	s := sessions.Open("sess_1", "127.0.0.1", "test")
	terminated := make(chan struct{})
	s.SetCancel(func() { close(terminated) })

	w := do(router, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []session.Info `json:"sessions"`
		Stats    session.Stats  `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, "sess_1", list.Sessions[0].ID)
	assert.Equal(t, 1, list.Stats.Active)

	w = do(router, http.MethodGet, "/sessions/sess_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/sessions/sess_1/tree", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no tree rendered yet")

	w = do(router, http.MethodGet, "/sessions/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/sessions/sess_1", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	select {
	case <-terminated:
	case <-time.After(time.Second):
		t.Fatal("session was not cancelled")
	}

	w = do(router, http.MethodDelete, "/sessions/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
