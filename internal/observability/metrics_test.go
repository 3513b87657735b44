package observability_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gtil/internal/observability"
)

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.Kill(true)
		m.Event("score-change")
		m.ObservePool(1, 1, 1)
		m.ObservePaths(1, 1)
		m.SetActiveEnemies(3)
		m.SetSubscribers(1)
		m.ObserveTick(time.Millisecond)
		m.SessionStarted("arcade")
	})
}

func TestMetrics_PoolDeltas(t *testing.T) {
	m := observability.NewMetrics()
	m.ObservePool(10, 1, 4)
	m.ObservePool(25, 1, 2)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry(), "gtil_projectiles_fired_total"))

	body := scrape(t, m)
	assert.Contains(t, body, "gtil_projectiles_fired_total 25")
	assert.Contains(t, body, "gtil_projectiles_dropped_total 1")
	assert.Contains(t, body, "gtil_projectiles_active 2")
}

func TestMetrics_PoolRebuildRestartsCount(t *testing.T) {
	m := observability.NewMetrics()
	m.ObservePool(30, 0, 0)
	m.ObservePool(5, 0, 0)
	assert.Contains(t, scrape(t, m), "gtil_projectiles_fired_total 35")
}

func TestMetrics_KillsByKind(t *testing.T) {
	m := observability.NewMetrics()
	m.Kill(false)
	m.Kill(false)
	m.Kill(true)
	body := scrape(t, m)
	assert.Contains(t, body, `gtil_kills_total{kind="enemy"} 2`)
	assert.Contains(t, body, `gtil_kills_total{kind="boss"} 1`)
}

func TestMetrics_PathsAndTicks(t *testing.T) {
	m := observability.NewMetrics()
	m.ObservePaths(4, 1)
	m.ObservePaths(9, 2)
	m.ObserveTick(300 * time.Microsecond)
	m.SetActiveEnemies(7)
	body := scrape(t, m)
	assert.Contains(t, body, "gtil_path_queries_total 9")
	assert.Contains(t, body, "gtil_path_no_path_total 2")
	assert.Contains(t, body, "gtil_tick_duration_seconds_count 1")
	assert.Contains(t, body, "gtil_enemies_active 7")
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
