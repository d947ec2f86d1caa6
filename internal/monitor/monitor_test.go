package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/banshee-data/pointcloud/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testFrame() *pipeline.Frame {
	return &pipeline.Frame{
		Seq:     7,
		Packets: 4,
		Kept: []kdtree.Point{
			kdtree.NewPoint(1, 2, 0, 0.5),
			kdtree.NewPoint(-3, 4, 0, 0.25),
			kdtree.NewPoint(2, -1, 0, 1),
		},
		Removed:    []kdtree.Point{kdtree.NewPoint(9.5, 0, 0, 0.1)},
		Duplicates: 0,
	}
}

func get(t *testing.T, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestMonitor_NoFrameYet(t *testing.T) {
	m := New(nil)
	assert.Nil(t, m.LastFrame())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, m.handleCloud).Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, m.handlePNG).Code)
}

func TestMonitor_HandleFrameKeepsLatest(t *testing.T) {
	m := New(nil)
	first, second := testFrame(), testFrame()
	second.Seq = 8

	require.NoError(t, m.HandleFrame(context.Background(), first))
	require.NoError(t, m.HandleFrame(context.Background(), second))
	assert.Same(t, second, m.LastFrame())
}

func TestMonitor_Cloud(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.HandleFrame(context.Background(), testFrame()))

	rec := get(t, m.handleCloud)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Frame 7")
	assert.Contains(t, body, "kept=3 removed=1")
	assert.Contains(t, body, "removed")
}

func TestMonitor_PNG(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.HandleFrame(context.Background(), testFrame()))

	rec := get(t, m.handlePNG)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))
}

func TestMonitor_Stats(t *testing.T) {
	m := New(func() pipeline.Stats {
		return pipeline.Stats{Frames: 3, Packets: 120, Removed: 4}
	})

	rec := get(t, m.handleStats)
	require.Equal(t, http.StatusOK, rec.Code)

	var got pipeline.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(3), got.Frames)
	assert.Equal(t, int64(120), got.Packets)
	assert.Equal(t, int64(4), got.Removed)
}

func TestMonitor_AdminRoutes(t *testing.T) {
	m := New(func() pipeline.Stats { return pipeline.Stats{Frames: 1} })
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/stats", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"frames":1`))
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, WritePNG(path, testFrame()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestWritePNG_EmptyFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, WritePNG(path, &pipeline.Frame{}))
}

func TestExtent(t *testing.T) {
	assert.Equal(t, 10.0, extent(testFrame()))
	assert.Equal(t, 1.0, extent(&pipeline.Frame{}))
}
