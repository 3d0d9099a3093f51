// ABOUTME: Bubble Tea sub-model that draws the agent flowchart as levelled text with highlighted nodes.
// ABOUTME: Reads nodes, edges, and class directives from mermaid source and orders nodes with Kahn's algorithm.
package tui

import (
	"sort"
	"strings"

	"github.com/2389-research/agentdeck/diagram"
)

// flowchart is the subset of a mermaid flowchart the terminal can draw.
type flowchart struct {
	nodes   []string // declaration order
	edges   map[string][]string
	classes map[string]string
}

// parseFlowchart reads node declarations, edges, and class directives.
// Other statements are skipped.
func parseFlowchart(source string) flowchart {
	fc := flowchart{edges: make(map[string][]string), classes: make(map[string]string)}
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			fc.nodes = append(fc.nodes, id)
		}
	}

	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ";")
		switch {
		case line == "", strings.HasPrefix(line, "%%"), strings.HasPrefix(line, "graph "),
			strings.HasPrefix(line, "flowchart "), strings.HasPrefix(line, "classDef "):
			continue
		case strings.HasPrefix(line, "class "):
			fields := strings.Fields(line)
			if len(fields) == 3 {
				for _, id := range strings.Split(fields[1], ",") {
					fc.classes[id] = fields[2]
				}
			}
			continue
		}

		from, to, ok := splitEdge(line)
		if ok {
			from, to = nodeID(from), nodeID(to)
			add(from)
			add(to)
			fc.edges[from] = append(fc.edges[from], to)
			continue
		}
		add(nodeID(line))
	}
	return fc
}

// splitEdge splits "a --> b" or "a -.-> b".
func splitEdge(line string) (string, string, bool) {
	for _, arrow := range []string{"-.->", "-->"} {
		if from, to, ok := strings.Cut(line, arrow); ok {
			return strings.TrimSpace(from), strings.TrimSpace(to), true
		}
	}
	return "", "", false
}

// nodeID returns the identifier prefix of a node reference such as
// "router(router)" or "__start__([...]):::first".
func nodeID(ref string) string {
	end := 0
	for end < len(ref) {
		c := ref[end]
		if c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			end++
			continue
		}
		break
	}
	return ref[:end]
}

// levels orders nodes into topological levels. Nodes caught in a cycle are
// appended as a final level so nothing is hidden.
func (fc flowchart) levels() [][]string {
	inDegree := make(map[string]int, len(fc.nodes))
	for _, id := range fc.nodes {
		for _, to := range fc.edges[id] {
			inDegree[to]++
		}
	}

	var queue []string
	for _, id := range fc.nodes {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	placed := make(map[string]bool, len(fc.nodes))
	var levels [][]string
	for len(queue) > 0 {
		levels = append(levels, queue)
		var next []string
		for _, id := range queue {
			placed[id] = true
			for _, to := range fc.edges[id] {
				inDegree[to]--
				if inDegree[to] == 0 {
					next = append(next, to)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	var rest []string
	for _, id := range fc.nodes {
		if !placed[id] {
			rest = append(rest, id)
		}
	}
	if len(rest) > 0 {
		levels = append(levels, rest)
	}
	return levels
}

// DiagramPanelModel displays the agent diagram and the intent summary.
type DiagramPanelModel struct {
	state  diagram.State
	chart  flowchart
	intent string
	width  int
	height int
}

// NewDiagramPanelModel creates a panel seeded with the current diagram and intent.
func NewDiagramPanelModel(state diagram.State, intentHTML string) DiagramPanelModel {
	m := DiagramPanelModel{}
	m.SetDiagram(state)
	m.SetIntent(intentHTML)
	return m
}

// SetDiagram replaces the drawn diagram. Older versions are ignored.
func (m *DiagramPanelModel) SetDiagram(state diagram.State) {
	if state.Version < m.state.Version {
		return
	}
	m.state = state
	m.chart = parseFlowchart(state.Source)
}

// SetIntent replaces the intent summary.
func (m *DiagramPanelModel) SetIntent(html string) {
	m.intent = PlainText(html)
}

// Active returns the highlight class of node, if any.
func (m DiagramPanelModel) Active(node string) string {
	return m.chart.classes[node]
}

// SetSize sets the outer dimensions, including the border.
func (m *DiagramPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the levelled node list with highlighted nodes.
func (m DiagramPanelModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Agent flow"))
	b.WriteString("\n")
	if m.intent != "" {
		b.WriteString(m.intent)
		b.WriteString("\n")
	}

	for _, level := range m.chart.levels() {
		for _, id := range level {
			b.WriteString(m.nodeLine(id))
			b.WriteString("\n")
		}
	}
	if len(m.chart.nodes) == 0 {
		b.WriteString(IdleStyle.Render("No diagram"))
	}

	content := strings.TrimRight(b.String(), "\n")
	if m.width <= 0 {
		return BorderStyle.Render(content)
	}
	return BorderStyle.
		Width(m.width - 2).
		Height(max(m.height-2, 1)).
		MaxHeight(max(m.height, 3)).
		Render(content)
}

func (m DiagramPanelModel) nodeLine(id string) string {
	var line string
	switch m.chart.classes[id] {
	case diagram.EmergencyClass:
		line = EmergencyNodeStyle.Render("  ● " + id)
	case diagram.ActiveClass:
		line = ActiveNodeStyle.Render("  ● " + id)
	default:
		line = "  ○ " + id
	}
	if targets := m.chart.edges[id]; len(targets) > 0 {
		line += EdgeStyle.Render(" → " + strings.Join(targets, ", "))
	}
	return line
}
