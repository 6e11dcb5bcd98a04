package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	engine "github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1"
)

// Application states.
const (
	StateResultSelect = iota
	StateMetricsView
	StateTradesView
)

// Model is the main Bubble Tea model for the results browser.
type Model struct {
	state         int
	resultsFolder string
	resultList    list.Model
	tradesTable   table.Model
	entries       []engine.ResultEntry
	selected      int
	err           error
	width         int
	height        int
}

// NewModel creates a new Model browsing resultsFolder.
func NewModel(resultsFolder string) Model {
	return Model{
		state:         StateResultSelect,
		resultsFolder: resultsFolder,
		resultList:    NewResultList(),
		tradesTable:   NewTradesTable(),
	}
}

// Init implements tea.Model. Loading happens off the update loop so a slow
// disk never blocks rendering.
func (m Model) Init() tea.Cmd {
	return loadResults(m.resultsFolder)
}

// loadResults returns a command that reads every run under the results folder.
func loadResults(resultsFolder string) tea.Cmd {
	return func() tea.Msg {
		entries, err := engine.ListResults(resultsFolder)
		if err != nil {
			return LoadErrorMsg{Err: err}
		}

		return ResultsLoadedMsg{Entries: entries}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			return m.handleEsc()
		case "r":
			if m.state == StateResultSelect {
				return m, loadResults(m.resultsFolder)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resultList.SetSize(msg.Width, msg.Height-4)
		m.tradesTable.SetWidth(msg.Width)
		m.tradesTable.SetHeight(msg.Height - 6)
		return m, nil

	case ResultsLoadedMsg:
		m.entries = msg.Entries
		m.err = nil
		m.resultList = UpdateResultItems(m.resultList, m.entries)
		return m, nil

	case LoadErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	// Delegate to state-specific update
	switch m.state {
	case StateResultSelect:
		return m.updateResultSelect(msg)
	case StateMetricsView:
		return m.updateMetricsView(msg)
	case StateTradesView:
		return m.updateTradesView(msg)
	}

	return m, nil
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateMetricsView:
		m.state = StateResultSelect
	case StateTradesView:
		m.state = StateMetricsView
	}

	return m, nil
}

func (m Model) updateResultSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if len(m.entries) > 0 {
				m.selected = m.resultList.Index()
				m.state = StateMetricsView
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m Model) updateMetricsView(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "t":
			m.tradesTable = UpdateTradeRows(m.tradesTable, m.entries[m.selected].Result.Trades)
			m.state = StateTradesView
			return m, nil
		}
	}

	return m, nil
}

func (m Model) updateTradesView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.tradesTable, cmd = m.tradesTable.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateResultSelect:
		s.WriteString(TitleStyle.Render("Backtest Results"))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if len(m.entries) == 0 {
			s.WriteString(fmt.Sprintf("No results found in %s\n", m.resultsFolder))
		} else {
			s.WriteString(m.resultList.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Enter: open | r: reload | q: quit"))

	case StateMetricsView:
		entry := m.entries[m.selected]
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Run %s", entry.Result.RunID)))
		s.WriteString("\n\n")
		s.WriteString(MetricsView(entry))
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("t: trades | Esc: back | q: quit"))

	case StateTradesView:
		entry := m.entries[m.selected]
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Trades - %s", entry.Result.RunID)))
		s.WriteString("\n\n")

		if len(entry.Result.Trades) == 0 {
			s.WriteString("No trades in this run\n")
		} else {
			s.WriteString(m.tradesTable.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Esc: back | q: quit"))
	}

	return s.String()
}
