package telemetry

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iw2rmb/quire/document"
	"github.com/iw2rmb/quire/store"
)

func TestMetrics_Saves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, DefaultConfig())

	m.SaveStarted(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.savesRunning))
	m.SaveFinished(true, 20*time.Millisecond, nil)
	m.SaveStarted(false)
	m.SaveFinished(false, time.Millisecond, store.Wrap("write", "a", store.ErrConflict))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.savesRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("true", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("false", "conflict")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.saveLatency))
}

func TestMetrics_LoadsAndStates(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{Namespace: "q", Subsystem: "d"})

	m.LoadFinished(time.Millisecond, nil)
	m.LoadFinished(time.Millisecond, store.ErrNotModified)
	m.StateChanged(document.StateSaved, document.StateDirty)
	m.StateChanged(document.StateDirty, document.StateSaved)
	m.StateChanged(document.StateSaved, document.StateDirty)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("not_modified")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("dirty")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", status(nil))
	assert.Equal(t, "not_found", status(store.Wrap("read", "a", store.ErrNotFound)))
	assert.Equal(t, "readonly", status(store.ErrReadonly))
	assert.Equal(t, "error", status(errors.New("x")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, DefaultConfig())
	m.LoadFinished(time.Millisecond, nil)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "quire_document_loads_total")
}
