// ABOUTME: Tests for the flowchart parser and DiagramPanelModel.
// ABOUTME: Covers node and edge extraction, topological levels, highlight classes, and stale versions.
package tui

import (
	"slices"
	"strings"
	"testing"

	"github.com/2389-research/agentdeck/diagram"
)

func TestParseFlowchartPipeline(t *testing.T) {
	fc := parseFlowchart(diagram.Pipeline)
	for _, node := range []string{"__start__", "router", "device_expert", "health_analyst", "visualizer", "emergency_advice", "general_assistant", "__end__"} {
		if !slices.Contains(fc.nodes, node) {
			t.Errorf("expected node %q", node)
		}
	}
	if len(fc.nodes) != 8 {
		t.Errorf("expected 8 nodes, got %v", fc.nodes)
	}
	if got := fc.edges["router"]; len(got) != 4 {
		t.Errorf("expected 4 router edges, got %v", got)
	}
	if len(fc.classes) != 0 {
		t.Errorf("expected no class directives, got %v", fc.classes)
	}
}

func TestFlowchartLevels(t *testing.T) {
	levels := parseFlowchart(diagram.Pipeline).levels()
	if len(levels) == 0 || !slices.Equal(levels[0], []string{"__start__"}) {
		t.Fatalf("expected __start__ first, got %v", levels)
	}
	last := levels[len(levels)-1]
	if !slices.Equal(last, []string{"__end__"}) {
		t.Errorf("expected __end__ last, got %v", last)
	}
}

func TestFlowchartLevelsKeepCycles(t *testing.T) {
	levels := parseFlowchart("graph TD;\n a --> b;\n b --> a;\n c --> a").levels()
	var all []string
	for _, l := range levels {
		all = append(all, l...)
	}
	slices.Sort(all)
	if !slices.Equal(all, []string{"a", "b", "c"}) {
		t.Errorf("expected every node placed, got %v", levels)
	}
}

func TestNodeID(t *testing.T) {
	tests := map[string]string{
		"router(router)":                        "router",
		"__start__([<p>__start__</p>]):::first": "__start__",
		"plain":                                 "plain",
		"":                                      "",
	}
	for in, want := range tests {
		if got := nodeID(in); got != want {
			t.Errorf("nodeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiagramPanelHighlights(t *testing.T) {
	src := diagram.Annotate(diagram.Pipeline, string(diagram.IntentHealthAnalyst), true)
	m := NewDiagramPanelModel(diagram.State{Source: src, Version: 1}, "意圖辨識：<b>health_analyst</b>")

	if m.Active("health_analyst") != diagram.ActiveClass {
		t.Error("expected health_analyst active")
	}
	if m.Active(diagram.EmergencyNode) != diagram.EmergencyClass {
		t.Error("expected emergency node highlighted")
	}
	if m.Active("router") != "" {
		t.Error("expected router not highlighted")
	}

	m.SetSize(60, 20)
	view := m.View()
	if !strings.Contains(view, "● health_analyst") {
		t.Errorf("expected active marker, got %q", view)
	}
	if !strings.Contains(view, "**health_analyst**") {
		t.Errorf("expected intent summary, got %q", view)
	}
}

func TestDiagramPanelIgnoresOlderVersions(t *testing.T) {
	m := NewDiagramPanelModel(diagram.State{Source: "graph TD;\n a --> b", Version: 3}, "")
	m.SetDiagram(diagram.State{Source: "graph TD;\n x --> y", Version: 2})
	if !slices.Contains(m.chart.nodes, "a") {
		t.Errorf("expected version 3 kept, got %v", m.chart.nodes)
	}
}

func TestDiagramPanelEmpty(t *testing.T) {
	m := NewDiagramPanelModel(diagram.State{}, "")
	if !strings.Contains(m.View(), "No diagram") {
		t.Error("expected empty placeholder")
	}
}
