// Package dashboard provides the Bubble Tea sleep report interface.
package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/dataset"
	"github.com/verte-zerg/tuisleep/internal/history"
	"github.com/verte-zerg/tuisleep/internal/model"
)

const (
	tabDuration = iota
	tabStages
	tabScore
	tabHistory
)

const (
	plotHeight   = 10
	defaultWidth = 80
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#5A8FC8"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	goodScoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	fairScoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")).Bold(true)
	poorScoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#5A8FC8")).
			Padding(1, 2)
)

// Config holds the dashboard's starting state.
type Config struct {
	// DataPath is the dataset opened at start; empty selects the bundled week.
	DataPath  string
	ModelPath string
	History   model.HistoryConfig
}

// analysisMsg carries the result of loading and scoring a dataset.
type analysisMsg struct {
	path   string
	report analysis.Report
	err    error
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	engine  *analysis.Engine
	history history.Lister
	cfg     Config

	dataPath string
	report   *analysis.Report
	errMsg   string
	loading  bool

	histReport history.Report
	histErr    string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	historyTable table.Model

	width  int
	height int

	openMode  bool
	pathInput textinput.Model
}

// NewModel constructs a dashboard. hist may be nil when history is disabled.
func NewModel(engine *analysis.Engine, hist history.Lister, cfg Config) *Model {
	m := &Model{
		engine:   engine,
		history:  hist,
		cfg:      cfg,
		dataPath: cfg.DataPath,
		tabs:     []string{"Sleep Duration", "Sleep Stages", "Score", "History"},
		loading:  true,
	}
	m.initPathInput()
	m.initViewports()
	m.historyTable = table.New(
		table.WithColumns(historyColumns(0)),
		table.WithHeight(1),
	)
	m.historyTable.SetStyles(historyTableStyles())
	m.refreshHistory()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.analyzeCmd(m.dataPath)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case analysisMsg:
		m.applyAnalysis(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.openMode {
			return m.updateOpen(msg)
		}
		if m.activeTab == tabHistory {
			m.historyTable.Focus()
		} else {
			m.historyTable.Blur()
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "1", "2", "3", "4":
			m.activeTab = int(msg.Runes[0] - '1')
			return m, tea.ClearScreen
		case "o":
			return m.startOpen()
		case "r":
			m.loading = true
			return m, m.analyzeCmd("")
		case "g", "home":
			if m.activeTab == tabHistory {
				m.historyTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.historyTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabHistory {
				var cmd tea.Cmd
				m.historyTable, cmd = m.historyTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.openMode {
		return fitLines(m.renderOpenModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) analyzeCmd(path string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		report, err := engine.AnalyzeFile(context.Background(), path)
		return analysisMsg{path: path, report: report, err: err}
	}
}

func (m *Model) applyAnalysis(msg analysisMsg) {
	m.loading = false
	m.dataPath = msg.path
	if msg.err != nil {
		m.report = nil
		m.errMsg = msg.err.Error()
		m.renderTabContents()
		return
	}
	report := msg.report
	m.report = &report
	m.errMsg = ""
	m.refreshHistory()
	m.renderTabContents()
}

func (m *Model) refreshHistory() {
	if m.history == nil {
		return
	}
	report, err := history.BuildReport(context.Background(), m.history, m.cfg.History)
	if err != nil {
		m.histErr = err.Error()
		return
	}
	m.histErr = ""
	m.histReport = report
	m.historyTable.SetRows(historyRows(report.Analyses))
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initPathInput() {
	input := textinput.New()
	input.Prompt = "Path: "
	input.Placeholder = "week.csv"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	m.pathInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.historyTable.SetColumns(historyColumns(m.width))
	m.historyTable.SetWidth(m.width)
	// summary line above the table
	m.historyTable.SetHeight(max(bodyHeight-2, 1))
	promptWidth := lipgloss.Width(m.pathInput.Prompt)
	m.pathInput.Width = max(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	} else {
		m.historyTable.Blur()
	}
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.report == nil {
		msg := "Loading..."
		if m.errMsg != "" {
			msg = "No report: the dataset was rejected. Press o to open another file or r for the bundled week."
		}
		for i := range m.viewports {
			m.viewports[i].SetContent(msg)
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	content := &tabContent{width: width}
	if err := analysis.Present(*m.report, content); err != nil {
		for i := range m.viewports {
			m.viewports[i].SetContent(fmt.Sprintf("Failed to render report: %v", err))
		}
		return
	}
	m.viewports[tabDuration].SetContent(strings.TrimRight(content.trend.String(), "\n"))
	m.viewports[tabStages].SetContent(strings.TrimRight(content.stages.String(), "\n"))
	m.viewports[tabScore].SetContent(renderScoreTab(*m.report, content.score, width))
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	status := padLines(m.renderStatus(), m.width)
	return tabs + "\n" + status
}

func (m *Model) renderStatus() string {
	source := dataset.DefaultSource
	if m.dataPath != "" {
		source = filepath.Base(m.dataPath)
	}
	modelName := "-"
	if m.cfg.ModelPath != "" {
		modelName = filepath.Base(m.cfg.ModelPath)
	}
	state := "ready"
	switch {
	case m.loading:
		state = "loading"
	case m.report == nil:
		state = "rejected"
	case m.report.RecordID != "":
		state = "recorded"
	}
	summary := fmt.Sprintf("Dataset: %s  Model: %s  Status: %s", source, modelName, state)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Open: o  Default: r  Quit: q"
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFooter() string {
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(truncateLine("Error: "+m.errMsg, m.width))
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabHistory {
		return fitLines(m.renderHistory(), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderHistory() string {
	if m.history == nil {
		return "History is disabled. Run with --record to store analyses."
	}
	if m.histErr != "" {
		return errorStyle.Render("Failed to load history: " + m.histErr)
	}
	summary := headerStyle.Render(truncateLine(historySummary(m.histReport.Analyses), m.width))
	if len(m.histReport.Analyses) == 0 {
		return summary
	}
	return summary + "\n" + tableMutedStyle.Render(m.historyTable.View())
}

func (m *Model) startOpen() (tea.Model, tea.Cmd) {
	m.openMode = true
	m.pathInput.SetValue(m.dataPath)
	m.pathInput.CursorEnd()
	return m, m.pathInput.Focus()
}

func (m *Model) updateOpen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.openMode = false
		m.pathInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.openMode = false
		m.pathInput.Blur()
		m.loading = true
		return m, m.analyzeCmd(expandHome(strings.TrimSpace(m.pathInput.Value())))
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m *Model) renderOpenModal() string {
	body := []string{
		cardValueStyle.Render("Open Dataset"),
		m.pathInput.View(),
		headerStyle.Render("CSV with exactly 7 days. Leave empty for the bundled week."),
		headerStyle.Render("Enter to analyze / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
