package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/config"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/tui/editor"
	"github.com/joacominatel/telequery/internal/tui/explorer"
	"github.com/joacominatel/telequery/internal/tui/results"
	"github.com/joacominatel/telequery/internal/tui/statusbar"
	"github.com/joacominatel/telequery/internal/tui/theme"
)

// Opener builds a service for a profile.
type Opener func(ctx context.Context, p config.Profile) (*app.Service, error)

// Options configures Run.
type Options struct {
	Config    *config.Config
	ConfigDir string
	Open      Opener
	// Profile, when set, is opened immediately instead of showing the
	// profile list.
	Profile *config.Profile
}

// Run starts the TUI and blocks until it exits or ctx is canceled.
func Run(ctx context.Context, opts Options) error {
	theme.Apply(opts.Config.Preferences.Theme)

	model := NewModel(opts)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if m, ok := final.(Model); ok && m.service != nil {
		_ = m.service.Close()
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Pane identifies a focusable area.
type Pane int

const (
	PaneExplorer Pane = iota
	PaneEditor
	PaneResults
)

func (p Pane) String() string {
	switch p {
	case PaneExplorer:
		return "explorer"
	case PaneEditor:
		return "editor"
	case PaneResults:
		return "results"
	default:
		return "unknown"
	}
}

// AppMode tracks the current UI state.
type AppMode int

const (
	ModeSelectProfile AppMode = iota // saved profiles list
	ModeConnect                      // manual workspace / DSN input
	ModeMain                         // main TUI
)

// Custom messages for async operations.
type (
	openedMsg struct {
		profile config.Profile
		service *app.Service
		manual  bool
		err     error
	}
	schemaLoadedMsg struct {
		tree *app.SchemaTree
		err  error
	}
	queryExecutedMsg struct {
		query  string
		result *telemetry.QueryResult
		err    error
	}
	columnsLoadedMsg struct {
		workspace string
		table     string
		columns   []telemetry.Column
		err       error
	}
	profileSavedMsg struct {
		profile config.Profile
		err     error
	}
)

// Model is the top-level bubbletea model orchestrating all components.
type Model struct {
	service    *app.Service
	open       Opener
	cfg        *config.Config
	configDir  string
	explorer   explorer.Model
	editor     editor.Model
	results    results.Model
	statusbar  statusbar.Model
	connInput  textinput.Model
	activePane Pane
	mode       AppMode
	width      int
	height     int
	err        error
	showHelp   bool
	initial    *config.Profile

	profileCursor int
}

// NewModel creates the top-level model.
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "workspace-id[,other-workspace] or postgres://user@host/db"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 70

	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	mode := ModeConnect
	cursor := 0
	if opts.Profile == nil && len(cfg.Profiles) > 0 {
		mode = ModeSelectProfile
		if def := config.DefaultProfile(cfg); def != nil {
			for i := range cfg.Profiles {
				if cfg.Profiles[i].Name == def.Name {
					cursor = i
				}
			}
		}
	}

	return Model{
		open:          opts.Open,
		cfg:           cfg,
		configDir:     opts.ConfigDir,
		explorer:      explorer.New(),
		editor:        editor.New(),
		results:       results.New(),
		statusbar:     statusbar.New(),
		connInput:     ti,
		activePane:    PaneExplorer,
		mode:          mode,
		initial:       opts.Profile,
		profileCursor: cursor,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.initial != nil {
		// targets that are not saved yet get stored once they open
		cmds = append(cmds, m.openCmd(*m.initial, !m.cfg.HasProfile(m.initial.Name)))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, table, ok := explorer.IsRequestColumnsMsg(msg); ok {
		return m, m.loadColumnsCmd(ws, table)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "?" && m.mode == ModeMain && m.activePane != PaneEditor {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch m.mode {
		case ModeSelectProfile:
			return m.updateSelectProfile(msg)
		case ModeConnect:
			return m.updateConnect(msg)
		case ModeMain:
			return m.updateMain(msg)
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.statusbar.SetMessage("Connection failed: " + msg.err.Error())
			return m, nil
		}
		if m.service != nil {
			_ = m.service.Close()
		}
		m.service = msg.service
		m.mode = ModeMain
		m.err = nil

		dialect := m.service.Dialect()
		m.explorer.SetDialect(dialect)
		m.editor.SetDialect(dialect)
		m.results.SetDialect(dialect)
		m.explorer.SetLoading(true)
		m.statusbar.SetConnected(true, msg.profile.DisplayString(), dialect.String())
		m.statusbar.SetTimespan(m.service.Timespan())
		m.setFocus(PaneExplorer)
		m.layout()

		cmds := []tea.Cmd{m.loadSchemaCmd()}
		if msg.manual {
			cmds = append(cmds, m.saveProfileCmd(msg.profile))
		}
		return m, tea.Batch(cmds...)

	case profileSavedMsg:
		if msg.err != nil {
			m.statusbar.SetMessage("Warning: could not save profile")
			return m, nil
		}
		m.cfg.AddProfile(msg.profile)
		return m, nil

	case schemaLoadedMsg:
		m.explorer.SetLoading(false)
		if msg.err != nil {
			m.err = msg.err
			m.statusbar.SetMessage("Failed to load schema: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetTree(msg.tree)
		m.editor.SetTableNames(m.service.AllTableNames(msg.tree))
		m.statusbar.SetMessage("")
		return m, nil

	case queryExecutedMsg:
		m.results.SetLoading(false)
		m.statusbar.SetMessage("")
		if msg.err != nil {
			m.results.SetError(msg.err)
			return m, nil
		}
		m.results.SetResult(msg.result, msg.query)
		if msg.result.PartialErr != nil {
			m.statusbar.SetMessage("Partial result: " + msg.result.PartialErr.Error())
		}
		return m, nil

	case columnsLoadedMsg:
		if msg.err != nil {
			m.statusbar.SetMessage("Failed to load columns: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetColumns(msg.workspace, msg.table, msg.columns)
		return m, nil

	case explorer.QuickQueryMsg:
		m.editor.SetQuery(msg.Query)
		return m.runQuery(msg.Workspace, msg.Query)

	case editor.ExecuteQueryMsg:
		return m.runQuery("", msg.Query)

	case results.SetEditorQueryMsg:
		m.editor.SetQuery(msg.Query)
		m.setFocus(PaneEditor)
		return m, nil

	case results.StatusNotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil
	}

	if m.mode == ModeMain {
		return m.updateComponents(msg)
	}
	if m.mode == ModeConnect {
		var cmd tea.Cmd
		m.connInput, cmd = m.connInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) runQuery(workspace, query string) (tea.Model, tea.Cmd) {
	if m.service == nil || strings.TrimSpace(query) == "" {
		return m, nil
	}
	m.results.SetLoading(true)
	m.statusbar.SetMessage("Executing query...")
	return m, m.executeQueryCmd(workspace, query)
}

func (m Model) updateSelectProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.cfg.Profiles)

	switch msg.String() {
	case "up", "k":
		if m.profileCursor > 0 {
			m.profileCursor--
		}
	case "down", "j":
		// the last row is "[New Target]"
		if m.profileCursor < count {
			m.profileCursor++
		}
	case "enter":
		if m.profileCursor < count {
			p := m.cfg.Profiles[m.profileCursor]
			m.statusbar.SetMessage("Connecting to " + p.Name + "...")
			return m, m.openCmd(p, false)
		}
		m.mode = ModeConnect
		m.connInput.Focus()
		return m, nil
	case "n":
		m.mode = ModeConnect
		m.connInput.Focus()
		return m, nil
	case "q":
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) updateConnect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		input := strings.TrimSpace(m.connInput.Value())
		if input == "" {
			return m, nil
		}
		p, err := config.ParseTarget(input)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.statusbar.SetMessage("Connecting...")
		return m, m.openCmd(p, true)
	case "esc":
		if len(m.cfg.Profiles) > 0 {
			m.mode = ModeSelectProfile
			m.err = nil
			return m, nil
		}
	case "q":
		if m.connInput.Value() == "" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.connInput, cmd = m.connInput.Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		if m.activePane != PaneEditor {
			return m, tea.Quit
		}
	case "tab":
		if m.activePane == PaneEditor && m.editor.CompletionActive() {
			return m.updateComponents(msg)
		}
		m.cyclePane()
		return m, nil
	case "shift+tab":
		m.cyclePaneBack()
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.activePane {
	case PaneExplorer:
		m.explorer, cmd = m.explorer.Update(msg)
	case PaneEditor:
		m.editor, cmd = m.editor.Update(msg)
	case PaneResults:
		m.results, cmd = m.results.Update(msg)
	}

	return m, cmd
}

func (m *Model) cyclePane() {
	m.setFocus((m.activePane + 1) % 3)
}

func (m *Model) cyclePaneBack() {
	m.setFocus((m.activePane + 2) % 3)
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.explorer.SetFocused(pane == PaneExplorer)
	m.editor.SetFocused(pane == PaneEditor)
	m.results.SetFocused(pane == PaneResults)
	m.statusbar.SetActivePane(pane.String())
}

// paneSizes splits the screen: the explorer takes a quarter of the width
// (clamped), the editor 40% of the right column.
func (m Model) paneSizes() (explorerWidth, rightWidth, availHeight, editorHeight int) {
	explorerWidth = min(max(m.width/4, 22), 35)
	rightWidth = m.width - explorerWidth - 1
	availHeight = m.height - 1
	editorHeight = max(availHeight*40/100, 5)
	return
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	explorerWidth, rightWidth, availHeight, editorHeight := m.paneSizes()
	m.explorer.SetSize(explorerWidth, availHeight)
	m.editor.SetSize(rightWidth, editorHeight)
	m.results.SetSize(rightWidth, availHeight-editorHeight-1)
	m.statusbar.SetWidth(m.width)
}

// Async commands

func (m Model) openCmd(p config.Profile, manual bool) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		if open == nil {
			return openedMsg{profile: p, err: fmt.Errorf("no backend configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc, err := open(ctx, p)
		return openedMsg{profile: p, service: svc, manual: manual, err: err}
	}
}

func (m Model) saveProfileCmd(p config.Profile) tea.Cmd {
	dir := m.configDir
	snapshot := config.Config{
		Profiles:    append([]config.Profile(nil), m.cfg.Profiles...),
		Preferences: m.cfg.Preferences,
	}
	return func() tea.Msg {
		err := config.SaveProfile(dir, &snapshot, p)
		return profileSavedMsg{profile: p, err: err}
	}
}

func (m Model) loadSchemaCmd() tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tree, err := service.LoadSchemaTree(ctx)
		return schemaLoadedMsg{tree: tree, err: err}
	}
}

func (m Model) executeQueryCmd(workspace, query string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		result, err := service.QueryLogs(ctx, telemetry.LogsQuery{
			WorkspaceID: workspace,
			Query:       query,
		})
		return queryExecutedMsg{query: query, result: result, err: err}
	}
}

func (m Model) loadColumnsCmd(workspace, table string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		columns, err := service.LoadColumns(ctx, workspace, table)
		return columnsLoadedMsg{workspace: workspace, table: table, columns: columns, err: err}
	}
}

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	switch m.mode {
	case ModeSelectProfile:
		return m.viewSelectProfile()
	case ModeConnect:
		return m.viewConnect()
	default:
		return m.viewMain()
	}
}

func (m Model) banner() []string {
	title := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(1, 0).
		Render("telequery")
	subtitle := theme.StyleMuted.Render("Logs and metrics from the terminal.")
	return []string{"", title, subtitle, ""}
}

func (m Model) errorLine() []string {
	if m.err == nil {
		return nil
	}
	return []string{"", theme.StyleError.Render("  Error: " + m.err.Error())}
}

func (m Model) viewSelectProfile() string {
	highlight := lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true)

	parts := m.banner()
	parts = append(parts, lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Render("Profiles"))

	for i, p := range m.cfg.Profiles {
		label := fmt.Sprintf("%s (%s)", p.Name, p.DisplayString())
		if i == m.profileCursor {
			parts = append(parts, highlight.Render("> "+label))
			continue
		}
		parts = append(parts, "  "+label)
	}

	newLabel := "  [New Target]"
	if m.profileCursor == len(m.cfg.Profiles) {
		newLabel = highlight.Render("> [New Target]")
	}
	parts = append(parts, "", newLabel)
	parts = append(parts, m.errorLine()...)
	parts = append(parts, "", theme.StyleMuted.Render("  ↑/↓: Navigate  Enter: Open  n: New  q: Quit"))

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) viewConnect() string {
	parts := m.banner()
	parts = append(parts,
		lipgloss.NewStyle().Foreground(theme.ColorPrimary).Render("Workspace ID(s) or connection string:"),
		"  "+m.connInput.View(),
	)
	parts = append(parts, m.errorLine()...)

	backHint := ""
	if len(m.cfg.Profiles) > 0 {
		backHint = "Esc: Back │ "
	}
	parts = append(parts, "", theme.StyleMuted.Render("  "+backHint+"Enter: Open │ Ctrl+C: Quit"))

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) border(p Pane) lipgloss.Style {
	if m.activePane == p {
		return theme.StyleActiveBorder
	}
	return theme.StyleBorder
}

func (m Model) viewMain() string {
	explorerWidth, rightWidth, availHeight, _ := m.paneSizes()
	// borders take one line top and bottom
	availHeight--
	editorHeight := max(availHeight*40/100, 5)
	resultsHeight := availHeight - editorHeight - 2

	explorerView := m.border(PaneExplorer).
		Width(explorerWidth - 2).
		Height(availHeight).
		Render(m.explorer.View())
	editorView := m.border(PaneEditor).
		Width(rightWidth - 2).
		Height(editorHeight).
		Render(m.editor.View())
	resultsView := m.border(PaneResults).
		Width(rightWidth - 2).
		Height(resultsHeight).
		Render(m.results.View())

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top,
		explorerView,
		lipgloss.JoinVertical(lipgloss.Left, editorView, resultsView),
	)

	return lipgloss.JoinVertical(lipgloss.Left, mainArea, m.statusbar.View())
}

type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{"q / Ctrl+C", "Quit"},
		{"Tab", "Switch between panes"},
		{"Shift+Tab", "Switch panes (reverse)"},
		{"?", "Toggle this help"},
	}},
	{"Explorer", [][2]string{
		{"↑/k  ↓/j", "Navigate up/down"},
		{"Enter/→/l", "Expand workspace or table"},
		{"←/h", "Collapse"},
		{"s", "Sample 100 rows"},
		{"d", "Count rows"},
	}},
	{"Editor", [][2]string{
		{"Ctrl+E / F5", "Run query"},
		{"Ctrl+K", "Clear editor"},
		{"Ctrl+L", "Format keywords"},
		{"Tab / Ctrl+Space", "Complete table name"},
		{"Esc", "Cancel completion"},
	}},
	{"Results", [][2]string{
		{"↑/k  ↓/j", "Scroll rows"},
		{"←/h  →/l", "Scroll columns"},
		{"PgUp/PgDn", "Page up/down"},
		{"n / N", "Next / previous table"},
		{"r", "Toggle raw text view"},
		{"y / Y", "Copy cell / row as JSON"},
		{"c / t", "Copy row as CSV / text"},
		{"f", "Filter by cell value"},
		{"e / E", "Export table as CSV / JSON"},
	}},
}

func (m Model) viewHelp() string {
	section := lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true)
	key := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(20)

	lines := []string{
		lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Render("telequery - Keyboard Shortcuts"),
	}
	for _, s := range helpSections {
		lines = append(lines, "", section.Render(s.title))
		for _, k := range s.keys {
			lines = append(lines, key.Render("  "+k[0])+theme.StyleMuted.Render(k[1]))
		}
	}
	lines = append(lines, "", theme.StyleMuted.Render("Press any key to close"))

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}
