// Package tui provides the live worker pool monitor.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

// RefreshInterval is how often the monitor polls /workers.
const RefreshInterval = 500 * time.Millisecond

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	barStyle = lipgloss.NewStyle().Foreground(cyanColor)
)

// App is the monitor's tea.Model.
type App struct {
	client  *Client
	table   table.Model
	stats   *models.PoolStats
	online  bool
	message string
	width   int
	height  int
	updated time.Time
}

// New creates a monitor for the daemon at apiAddr.
func New(apiAddr string) *App {
	t := table.New(
		table.WithColumns(workerColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true).
		Foreground(cyanColor)
	s.Selected = s.Selected.
		Foreground(fgColor).
		Background(primaryColor)
	t.SetStyles(s)

	return &App{
		client: NewClient(apiAddr),
		table:  t,
		width:  80,
		height: 24,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type workersFetchedMsg struct {
	stats *models.PoolStats
}

type errMsg struct {
	err error
}

type tickMsg time.Time

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetchWorkers(), a.tickCmd())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "r":
			a.message = "Refreshing..."
			return a, a.fetchWorkers()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		h := msg.Height - 14
		if h < 3 {
			h = 3
		}
		a.table.SetHeight(h)
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.fetchWorkers(), a.tickCmd())

	case workersFetchedMsg:
		a.stats = msg.stats
		a.online = true
		a.message = ""
		a.updated = time.Now()
		a.table.SetRows(workerRows(msg.stats))
		return a, nil

	case errMsg:
		a.online = false
		a.message = fmt.Sprintf("Error: %v", msg.err)
		return a, nil
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	status := onlineStyle.Render("● DAEMON")
	if !a.online {
		status = offlineStyle.Render("○ DAEMON")
	}
	b.WriteString(titleStyle.Render("spread worker pool") + "  " + status + "\n")
	b.WriteString(strings.Repeat("─", a.width) + "\n")

	if a.stats == nil {
		b.WriteString("\n  Loading...\n")
	} else {
		b.WriteString(a.renderSummary() + "\n")
		b.WriteString(panelStyle.Render(a.table.View()) + "\n")
		b.WriteString(a.renderBars())
	}

	if a.message != "" {
		style := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			style = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + style.Render(a.message))
	}
	b.WriteString("\n")

	workers := 0
	if a.stats != nil {
		workers = a.stats.PoolSize
	}
	bar := fmt.Sprintf(" Workers: %d | ↑↓:nav | r:refresh | q:quit", workers)
	if !a.updated.IsZero() {
		bar += " | updated " + a.updated.Format("15:04:05")
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(bar))
	return b.String()
}

func (a *App) renderSummary() string {
	s := a.stats
	lo, hi := spread(s)

	state := lipgloss.NewStyle().Foreground(successColor).Render("running")
	if s.Stopping {
		state = lipgloss.NewStyle().Foreground(warningColor).Render("draining")
	}
	return fmt.Sprintf("  Pool: %s  In flight: %d  Admitted: %d  Completed: %d  Cost spread: %d",
		state, s.InFlight, s.Admitted, s.Completed, hi-lo)
}

func (a *App) renderBars() string {
	_, hi := spread(a.stats)
	width := a.width - 20
	if width > 50 {
		width = 50
	}
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	b.WriteString("\n  Cost per worker:\n")
	for _, w := range a.stats.Workers {
		b.WriteString(fmt.Sprintf("  %3d %s %d\n", w.ID, barStyle.Render(costBar(w.Cost, hi, width)), w.Cost))
	}
	b.WriteString("  " + helpStyle.Render("Costs are cumulative estimates placed on each worker") + "\n")
	return b.String()
}

func (a *App) fetchWorkers() tea.Cmd {
	return func() tea.Msg {
		stats, err := a.client.GetWorkers()
		if err != nil {
			return errMsg{err}
		}
		return workersFetchedMsg{stats}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
