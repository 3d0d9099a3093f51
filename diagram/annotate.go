// ABOUTME: DiagramAnnotator appending intent and emergency highlight directives to mermaid pipeline source.
// ABOUTME: Annotation is additive-only: the backend's source is copied, never edited in place.
package diagram

import "strings"

// IntentClass is the backend's classification of a chat turn.
type IntentClass string

const (
	IntentDeviceExpert  IntentClass = "device_expert"
	IntentHealthAnalyst IntentClass = "health_analyst"
	IntentVisualizer    IntentClass = "visualizer"
	IntentGeneral       IntentClass = "general"
)

// Highlight classes and the fixed emergency node in the pipeline diagram.
const (
	ActiveClass    = "activeNode"
	EmergencyClass = "activeEmergencyNode"
	EmergencyNode  = "emergency_advice"
)

// nodeByIntent maps each intent to the diagram node that handles it.
var nodeByIntent = map[IntentClass]string{
	IntentDeviceExpert:  "device_expert",
	IntentHealthAnalyst: "health_analyst",
	IntentVisualizer:    "visualizer",
	IntentGeneral:       "general_assistant",
}

// NodeFor returns the diagram node for intent. Unknown intents report false
// and are not an error: they simply highlight nothing.
func NodeFor(intent string) (string, bool) {
	node, ok := nodeByIntent[IntentClass(intent)]
	return node, ok
}

// Annotate returns source with highlight directives appended. A mapped
// intent adds an active-class directive for its node; isEmergency always
// adds the emergency directive, whether or not the intent was mapped.
func Annotate(source, intent string, isEmergency bool) string {
	var b strings.Builder
	b.Grow(len(source) + 96)
	b.WriteString(source)

	if node, ok := NodeFor(intent); ok {
		b.WriteString("\nclass ")
		b.WriteString(node)
		b.WriteString(" ")
		b.WriteString(ActiveClass)
	}
	if isEmergency {
		b.WriteString("\nclass ")
		b.WriteString(EmergencyNode)
		b.WriteString(" ")
		b.WriteString(EmergencyClass)
	}
	return b.String()
}
