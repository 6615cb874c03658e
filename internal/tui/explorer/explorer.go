package explorer

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/telequery/internal/app"
	"github.com/joacominatel/telequery/internal/telemetry"
	"github.com/joacominatel/telequery/internal/tui/theme"
)

// sampleSize is the row count of the quick sample query.
const sampleSize = 100

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeTarget NodeKind = iota
	NodeWorkspace
	NodeTable
	NodeColumn
)

// TreeNode represents a single node in the workspace tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Loaded   bool // whether children have been fetched

	Workspace string // owning workspace (tables and columns)
	Table     string // owning table (columns)
	DataType  string // column type
}

type flatItem struct {
	node  *TreeNode
	depth int
}

// QuickQueryMsg asks the app to run a generated query for a table.
type QuickQueryMsg struct {
	Workspace string
	Query     string
}

type requestColumnsMsg struct {
	Workspace string
	Table     string
}

// IsRequestColumnsMsg reports whether msg asks for the columns of a table.
func IsRequestColumnsMsg(msg tea.Msg) (workspace, table string, ok bool) {
	if m, ok := msg.(requestColumnsMsg); ok {
		return m.Workspace, m.Table, true
	}
	return "", "", false
}

// Model is the explorer (workspace tree) component.
type Model struct {
	tree    *TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
	dialect telemetry.Dialect
}

// New creates a new explorer model.
func New() Model {
	return Model{dialect: telemetry.DialectKQL}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
}

func (m Model) Focused() bool {
	return m.focused
}

func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetDialect selects the language of the quick queries.
func (m *Model) SetDialect(d telemetry.Dialect) {
	m.dialect = d
}

// SetTree populates the explorer. A single workspace is shown expanded.
func (m *Model) SetTree(tree *app.SchemaTree) {
	root := &TreeNode{
		Kind:     NodeTarget,
		Name:     tree.Target,
		Expanded: true,
		Loaded:   true,
	}

	for _, ws := range tree.Workspaces {
		name := ws.ID
		if name == "" {
			name = "tables"
		}
		wsNode := &TreeNode{
			Kind:      NodeWorkspace,
			Name:      name,
			Workspace: ws.ID,
			Expanded:  len(tree.Workspaces) == 1,
			Loaded:    true,
		}
		for _, t := range ws.Tables {
			wsNode.Children = append(wsNode.Children, &TreeNode{
				Kind:      NodeTable,
				Name:      t,
				Workspace: ws.ID,
			})
		}
		root.Children = append(root.Children, wsNode)
	}

	m.tree = root
	m.cursor = 0
	m.flatten()
	m.loading = false
}

// SetColumns adds column nodes to a table node.
func (m *Model) SetColumns(workspace, table string, columns []telemetry.Column) {
	node := m.findTable(workspace, table)
	if node == nil {
		return
	}
	node.Children = nil
	for _, col := range columns {
		node.Children = append(node.Children, &TreeNode{
			Kind:      NodeColumn,
			Name:      col.Name,
			Workspace: workspace,
			Table:     table,
			DataType:  col.Type,
		})
	}
	node.Loaded = true
	m.flatten()
}

func (m *Model) findTable(workspace, table string) *TreeNode {
	if m.tree == nil {
		return nil
	}
	for _, ws := range m.tree.Children {
		if ws.Workspace != workspace {
			continue
		}
		for _, t := range ws.Children {
			if t.Name == table {
				return t
			}
		}
	}
	return nil
}

// SelectedTable returns the table under the cursor, or the table owning
// the column under the cursor.
func (m Model) SelectedTable() (workspace, table string, ok bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", "", false
	}
	node := m.items[m.cursor].node
	switch node.Kind {
	case NodeTable:
		return node.Workspace, node.Name, true
	case NodeColumn:
		return node.Workspace, node.Table, true
	}
	return "", "", false
}

func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			m.cursor = max(0, len(m.items)-1)
		case "enter", "right", "l":
			return m, m.toggleExpand()
		case "left", "h":
			m.collapse()
		case "s":
			return m, m.quickQuery(func(table string) string { return m.dialect.SampleQuery(table, sampleSize) })
		case "d":
			return m, m.quickQuery(m.dialect.CountQuery)
		}
	}

	return m, nil
}

func (m Model) quickQuery(build func(table string) string) tea.Cmd {
	ws, table, ok := m.SelectedTable()
	if !ok {
		return nil
	}
	query := build(table)
	return func() tea.Msg {
		return QuickQueryMsg{Workspace: ws, Query: query}
	}
}

func (m *Model) toggleExpand() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node
	if node.Kind == NodeColumn {
		return nil
	}

	node.Expanded = !node.Expanded
	m.flatten()

	if node.Expanded && node.Kind == NodeTable && !node.Loaded {
		ws, table := node.Workspace, node.Name
		return func() tea.Msg {
			return requestColumnsMsg{Workspace: ws, Table: table}
		}
	}
	return nil
}

// collapse folds the node under the cursor, or its parent when the node
// is already folded.
func (m *Model) collapse() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	item := m.items[m.cursor]
	if item.node.Expanded {
		item.node.Expanded = false
		m.flatten()
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.items[i].depth < item.depth {
			m.cursor = i
			m.items[i].node.Expanded = false
			m.flatten()
			return
		}
	}
}

// View renders the explorer.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	title := titleStyle.Render("Workspaces")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}
	if m.tree == nil {
		return title + "\n" + theme.StyleMuted.Render("  Not connected")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	visibleHeight := max(1, m.height-2)
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	for i := scrollOffset; i < len(m.items) && i < scrollOffset+visibleHeight; i++ {
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
		if i < scrollOffset+visibleHeight-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "  "
	if node.Kind != NodeColumn {
		icon = "▶ "
		if node.Expanded {
			icon = "▼ "
		}
	}

	line := indent + icon + node.Name
	if m.width > 0 && len([]rune(line)) > m.width-2 {
		line = string([]rune(line)[:max(0, m.width-4)]) + ".."
	}

	if selected {
		line = lipgloss.NewStyle().
			Foreground(theme.ColorHighlight).
			Bold(true).
			Render(line)
	}
	if node.Kind == NodeColumn && node.DataType != "" {
		line += " " + theme.StyleMuted.Render(node.DataType)
	}
	return line
}
