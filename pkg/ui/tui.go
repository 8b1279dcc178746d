package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
)

const maxRows = 50

// Model is the Bubble Tea model for the engine dashboard.
type Model struct {
	table   table.Model
	spots   map[string]decimal.Decimal
	results []*domain.Result
	lastLog string
	width   int

	profits    int
	losses     int
	reverts    int
	totalBps   int
	cumulative decimal.Decimal
}

// NewModel creates the dashboard model.
func NewModel() Model {
	columns := []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Route", Width: 28},
		{Title: "Borrowed", Width: 16},
		{Title: "Final", Width: 16},
		{Title: "Profit", Width: 14},
		{Title: "Outcome", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(ColorPrimary)
	styles.Selected = styles.Selected.Foreground(ColorSecondary)
	t.SetStyles(styles)

	return Model{
		table:      t,
		spots:      make(map[string]decimal.Decimal),
		cumulative: decimal.Zero,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case QuitMsg:
		return m, tea.Quit

	case SpotMsg:
		m.spots[msg.Venue] = msg.Price

	case LogMsg:
		m.lastLog = fmt.Sprintf("[%s] %s", msg.Level, msg.Message)

	case ResultMsg:
		m.ingest(msg.Result)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) ingest(res *domain.Result) {
	m.results = append([]*domain.Result{res}, m.results...)
	if len(m.results) > maxRows {
		m.results = m.results[:maxRows]
	}

	switch res.Outcome {
	case domain.OutcomeProfit:
		m.profits++
		m.cumulative = m.cumulative.Add(res.ProfitDecimal())
	case domain.OutcomeUnprofitable:
		m.losses++
	case domain.OutcomeReverted:
		m.reverts++
	}

	rows := make([]table.Row, 0, len(m.results))
	for _, r := range m.results {
		profit := r.ProfitDecimal().StringFixed(4)
		if r.Outcome == domain.OutcomeReverted {
			profit = "-"
		}
		rows = append(rows, table.Row{
			r.Timestamp.Format("15:04:05"),
			r.Route.String(),
			r.Borrowed.String(),
			r.Final.String(),
			profit,
			r.Outcome.String(),
		})
	}
	m.table.SetRows(rows)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("FLASHPOOL ENGINE"))
	b.WriteString("\n\n")

	// Venue spots
	venues := make([]string, 0, len(m.spots))
	for v := range m.spots {
		venues = append(venues, v)
	}
	sort.Strings(venues)

	var spotParts []string
	for _, v := range venues {
		spotParts = append(spotParts,
			fmt.Sprintf("%s %s", v, m.spots[v].StringFixed(6)))
	}
	if len(spotParts) > 0 {
		b.WriteString(BoxStyle.Render("Spots: " + strings.Join(spotParts, "   ")))
		b.WriteString("\n")
	}

	// Tallies
	tally := fmt.Sprintf("profit %s  unprofitable %s  reverted %s  cumulative %s",
		PositiveValue.Render(fmt.Sprintf("%d", m.profits)),
		WarningValue.Render(fmt.Sprintf("%d", m.losses)),
		NegativeValue.Render(fmt.Sprintf("%d", m.reverts)),
		m.cumulative.StringFixed(4))
	b.WriteString(BoxStyle.Render(tally))
	b.WriteString("\n\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.lastLog != "" {
		b.WriteString(MutedValue.Render(m.lastLog))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("q: quit"))
	return b.String()
}

// NewProgram builds the Bubble Tea program for the dashboard.
func NewProgram() *tea.Program {
	return tea.NewProgram(NewModel(), tea.WithAltScreen())
}
