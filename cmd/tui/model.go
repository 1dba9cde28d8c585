package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"investpro/services/analysis"
	"investpro/services/dashboard"
	"investpro/services/engine"
	"investpro/services/market"
)

const investproLogo = `
 ___                     _   ____
|_ _|_ ____   _____  ___| |_|  _ \ _ __ ___
 | || '_ \ \ / / _ \/ __| __| |_) | '__/ _ \
 | || | | \ V /  __/\__ \ |_|  __/| | | (_) |
|___|_| |_|\_/ \___||___/\__|_|   |_|  \___/
`

const healthInterval = 30 * time.Second

// Styles
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	spotlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	statusOkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF0000"))
)

type model struct {
	session  *dashboard.Session
	prober   *dashboard.Prober
	interval time.Duration

	ready  bool
	width  int
	height int

	table     table.Model
	search    textinput.Model
	searching bool
	rows      []market.Asset

	health dashboard.Status
	err    error
}

type tickMsg time.Time
type healthTickMsg time.Time

type refreshMsg struct {
	applied bool
	err     error
}

type insightMsg struct {
	ticket  dashboard.Ticket
	applied bool
}

type healthMsg dashboard.Status

func newModel(session *dashboard.Session, prober *dashboard.Prober, interval time.Duration) model {
	columns := []table.Column{
		{Title: "Ticker", Width: 8},
		{Title: "Name", Width: 22},
		{Title: "Type", Width: 5},
		{Title: "Price", Width: 12},
		{Title: "Change", Width: 9},
		{Title: "DY", Width: 8},
		{Title: "P/VP", Width: 6},
		{Title: "Proj.", Width: 8},
		{Title: "", Width: 2},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "ticker or name"
	ti.Prompt = "/ "
	ti.CharLimit = 32

	m := model{
		session:  session,
		prober:   prober,
		interval: interval,
		table:    t,
		search:   ti,
	}
	m.syncRows()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.interval),
		healthCmd(m.prober),
		textinput.Blink,
	)
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func healthTickCmd() tea.Cmd {
	return tea.Tick(healthInterval, func(t time.Time) tea.Msg {
		return healthTickMsg(t)
	})
}

func refreshCmd(s *dashboard.Session) tea.Cmd {
	return func() tea.Msg {
		applied, err := s.Refresh(context.Background())
		return refreshMsg{applied: applied, err: err}
	}
}

func insightCmd(s *dashboard.Session, t dashboard.Ticket) tea.Cmd {
	return func() tea.Msg {
		return insightMsg{ticket: t, applied: s.FetchInsight(context.Background(), t)}
	}
}

func healthCmd(p *dashboard.Prober) tea.Cmd {
	return func() tea.Msg {
		return healthMsg(p.Check(context.Background()))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		if _, ok := m.session.Selected(); ok {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		return m, tea.Batch(refreshCmd(m.session), tickCmd(m.interval))

	case healthTickMsg:
		return m, healthCmd(m.prober)

	case healthMsg:
		m.health = dashboard.Status(msg)
		return m, healthTickCmd()

	case refreshMsg:
		if msg.err != nil {
			log.Error().Err(msg.err).Msg("Refresh failed")
			m.err = msg.err
		} else if msg.applied {
			m.err = nil
		}
		m.syncRows()

	case insightMsg:
		if !msg.applied {
			log.Debug().Str("ticker", msg.ticket.Ticker).Msg("Insight arrived for a previous selection")
		}
	}

	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		m.search.SetValue("")
		m.syncRows()
		cmd := m.search.Focus()
		return m, cmd
	case "r":
		return m, refreshCmd(m.session)
	case "enter":
		return m.selectRow()
	case "1", "2", "3", "4", "5", "6":
		preds := analysis.Predicates()
		i := int(key[0] - '1')
		if err := m.session.SetFilter(preds[i].Predicate); err != nil {
			m.err = err
		}
		m.syncRows()
		m.table.SetCursor(0)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.syncRows()
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return m.selectRow()
	case "up", "down":
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.syncRows()
	return m, cmd
}

func (m model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.session.ClearSelection()
		m.search.SetValue("")
		m.syncRows()
		return m, nil
	case "r":
		return m, refreshCmd(m.session)
	case "i":
		if a, ok := m.session.Selected(); ok {
			return m.selectTicker(a.Ticker)
		}
	}
	return m, nil
}

func (m model) selectRow() (tea.Model, tea.Cmd) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return m, nil
	}
	return m.selectTicker(m.rows[i].Ticker)
}

func (m model) selectTicker(ticker string) (tea.Model, tea.Cmd) {
	ticket, err := m.session.Select(ticker)
	if err != nil {
		m.err = err
		return m, nil
	}
	return m, insightCmd(m.session, ticket)
}

// syncRows rebuilds the table from the latest snapshot
func (m *model) syncRows() {
	if q := m.search.Value(); m.searching && strings.TrimSpace(q) != "" {
		m.rows = m.session.Search(q)
	} else {
		m.rows = m.session.Visible()
	}

	rows := make([]table.Row, len(m.rows))
	for i, a := range m.rows {
		star := ""
		if analysis.Spotlight(a) {
			star = "★"
		}
		rows[i] = table.Row{
			a.Ticker,
			truncate(a.Name, 22),
			a.Kind.Label(),
			market.FormatBRL(a.Price),
			market.FormatSignedPercent(a.ChangePercent),
			market.FormatPercent(a.DividendYield),
			fmt.Sprintf("%.2f", a.PriceToBook),
			market.FormatPercent(a.ProjectedReturn),
			star,
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func (m model) View() string {
	if !m.ready {
		return "\n  Loading InvestPro..."
	}

	var b strings.Builder

	b.WriteString(logoStyle.Render(investproLogo))
	b.WriteString(titleStyle.Render(fmt.Sprintf(" %s ", time.Now().Format("02/01/2006 15:04"))) + "\n")
	b.WriteString(m.renderTape() + "\n")

	if asset, ok := m.session.Selected(); ok {
		b.WriteString(m.renderDetail(asset))
	} else {
		b.WriteString(m.renderList())
	}

	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderTape shows every asset of the catalog regardless of filter
func (m model) renderTape() string {
	var parts []string
	for _, a := range m.session.Snapshot().Assets {
		style := gainStyle
		if a.ChangePercent < 0 {
			style = lossStyle
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", a.Ticker, market.FormatBRL(a.Price),
			style.Render(market.FormatSignedPercent(a.ChangePercent))))
	}

	tape := strings.Join(parts, "  •  ")
	if m.width > 0 {
		tape = lipgloss.NewStyle().MaxWidth(m.width).Render(tape)
	}
	return tape
}

func (m model) renderFilters() string {
	active := m.session.Filter()
	var rendered []string

	for i, info := range analysis.Predicates() {
		style := lipgloss.NewStyle().Padding(0, 1)
		if info.Predicate == active {
			style = style.
				Background(lipgloss.Color("#7D56F4")).
				Foreground(lipgloss.Color("#FAFAFA")).
				Bold(true)
		} else {
			style = style.Foreground(lipgloss.Color("#626262"))
		}
		rendered = append(rendered, style.Render(fmt.Sprintf("%d %s", i+1, info.Label)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderList() string {
	var b strings.Builder

	b.WriteString(m.renderFilters() + "\n")
	if m.searching {
		b.WriteString(m.search.View() + "\n")
	}

	if len(m.rows) == 0 {
		b.WriteString("\n" + boxStyle.Render("No assets match.") + "\n")
	} else {
		b.WriteString("\n" + m.table.View() + "\n")
	}

	help := "↑/↓: Move • enter: Details • /: Search • 1-6: Filter • r: Refresh • q: Quit"
	if m.searching {
		help = "type to search • ↑/↓: Move • enter: Details • esc: Cancel"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m model) renderDetail(a market.Asset) string {
	var b strings.Builder

	title := fmt.Sprintf("%s • %s (%s)", a.Ticker, a.Name, a.Kind.Label())
	if analysis.Spotlight(a) {
		title += " " + spotlightStyle.Render("★ Opportunity")
	}
	b.WriteString(headerStyle.Render(title) + "\n\n")

	changeStyle := gainStyle
	if a.ChangePercent < 0 {
		changeStyle = lossStyle
	}

	facts := fmt.Sprintf(
		"Price:            %s %s\n"+
			"Sector:           %s\n"+
			"Dividend Yield:   %s\n"+
			"P/VP:             %.2f\n"+
			"Market Cap:       %s\n"+
			"Projected Return: %s\n"+
			"History:          %s",
		market.FormatBRL(a.Price), changeStyle.Render(market.FormatSignedPercent(a.ChangePercent)),
		a.Sector,
		market.FormatPercent(a.DividendYield),
		a.PriceToBook,
		market.FormatCompact(a.MarketCap),
		market.FormatPercent(a.ProjectedReturn),
		sparkline(a.History),
	)
	if a.NextDividend != nil {
		facts += fmt.Sprintf("\nNext Dividend:    %s on %s",
			market.FormatBRL(a.NextDividend.Value), a.NextDividend.Date.Format("02/01/2006"))
	}
	b.WriteString(boxStyle.Render(facts) + "\n")

	b.WriteString(headerStyle.Render("AI Insight") + "\n")
	b.WriteString(m.renderInsight(m.session.Insight()) + "\n")

	b.WriteString(helpStyle.Render("esc: Back • i: New insight • r: Refresh • q: Quit"))
	return b.String()
}

func (m model) renderInsight(st dashboard.InsightState) string {
	switch {
	case st.Loading:
		return helpStyle.Render("Generating analysis...")
	case !st.Ready():
		return ""
	case st.Result.Kind == engine.KindUnavailable:
		return statusWarnStyle.Render(st.Result.Text)
	case !st.Result.OK():
		return statusErrorStyle.Render(st.Result.Text)
	}

	width := 80
	if m.width > 10 {
		width = m.width - 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return st.Result.Text
	}
	out, err := r.Render(st.Result.Text)
	if err != nil {
		return st.Result.Text
	}
	return strings.TrimRight(out, "\n")
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

func sparkline(points []market.PricePoint) string {
	if len(points) == 0 {
		return ""
	}
	lo, hi := points[0].Price, points[0].Price
	for _, p := range points {
		lo = min(lo, p.Price)
		hi = max(hi, p.Price)
	}

	out := make([]rune, len(points))
	for i, p := range points {
		idx := 0
		if hi > lo {
			idx = int((p.Price - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}

func (m model) renderStatusBar() string {
	snap := m.session.Snapshot()
	parts := []string{
		helpStyle.Render(fmt.Sprintf("Last update: %s", snap.UpdatedAt.Format("15:04:05"))),
	}

	if m.session.Refreshing() {
		parts = append(parts, statusWarnStyle.Render("⟳ Updating..."))
	}

	switch m.health {
	case dashboard.StatusOnline:
		parts = append(parts, statusOkStyle.Render("● Online"))
	case dashboard.StatusOffline:
		parts = append(parts, statusErrorStyle.Render("● Offline"))
	default:
		parts = append(parts, helpStyle.Render("● Unknown"))
	}

	if m.err != nil {
		parts = append(parts, statusErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return "\n" + strings.Join(parts, " • ")
}
