package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

var sampleStats = &models.PoolStats{
	PoolSize:  2,
	InFlight:  1,
	Admitted:  4,
	Completed: 3,
	Workers: []models.WorkerStats{
		{ID: 0, State: models.WorkerIdle, Queued: 0, Executed: 2, Cost: 11},
		{ID: 1, State: models.WorkerDraining, Queued: 1, Executed: 1, Cost: 10},
	},
}

func TestCostBar(t *testing.T) {
	assert.Equal(t, "░░░░", costBar(0, 10, 4))
	assert.Equal(t, "████", costBar(10, 10, 4))
	assert.Equal(t, "██░░", costBar(5, 10, 4))
	assert.Equal(t, "█░░░", costBar(1, 100, 4))
	assert.Equal(t, "", costBar(5, 10, 0))
}

func TestWorkerRows(t *testing.T) {
	rows := workerRows(sampleStats)
	require.Len(t, rows, 2)
	assert.Equal(t, "draining", rows[1][1])
	assert.Equal(t, "11", rows[0][4])
	assert.Nil(t, workerRows(nil))

	lo, hi := spread(sampleStats)
	assert.Equal(t, int64(10), lo)
	assert.Equal(t, int64(11), hi)
}

func TestClientGetWorkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/workers":
			json.NewEncoder(w).Encode(sampleStats)
		case "/health":
			w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	stats, err := c.GetWorkers()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PoolSize)
	assert.Equal(t, int64(11), stats.Workers[0].Cost)
	assert.True(t, c.CheckHealth())
}

func TestAppUpdate(t *testing.T) {
	a := New("http://127.0.0.1:0")
	assert.Contains(t, a.View(), "Loading")

	_, cmd := a.Update(workersFetchedMsg{stats: sampleStats})
	assert.Nil(t, cmd)
	assert.True(t, a.online)

	view := a.View()
	assert.Contains(t, view, "Completed: 3")
	assert.Contains(t, view, "Cost spread: 1")

	a.Update(errMsg{errors.New("connection refused")})
	assert.False(t, a.online)
	assert.True(t, strings.Contains(a.View(), "Error: connection refused"))

	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
