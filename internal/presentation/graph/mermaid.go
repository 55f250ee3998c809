package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/signoff/pkg/domain"
)

// GraphOverlay contains instance state to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	Status       domain.Status
}

// OverlayFromInstance builds an overlay from an instance and its history.
func OverlayFromInstance(inst *domain.Instance, history []domain.HistoryRecord) *GraphOverlay {
	overlay := &GraphOverlay{CurrentNode: inst.CurrentNodeID, Status: inst.Status}
	for _, rec := range history {
		if rec.NodeID != "" {
			overlay.VisitedNodes = append(overlay.VisitedNodes, rec.NodeID)
		}
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart for a workflow.
// Shapes follow the node type:
// - Start: ((Circle))
// - End: (((Double circle)))
// - Condition: {Diamond}
// - Parallel: [[Subroutine]]
// - Sequential: [/Parallelogram/]
// - Single: [Rectangle]
// Condition edges are labelled with their socket.
func GenerateMermaid(wf *domain.Workflow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range wf.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeStart:
			opener, closer = "((", "))"
		case domain.NodeTypeEnd:
			opener, closer = "(((", ")))"
		case domain.NodeTypeCondition:
			opener, closer = "{", "}"
		case domain.NodeTypeParallel:
			opener, closer = "[[", "]]"
		case domain.NodeTypeSequential:
			opener, closer = "[/", "/]"
		}

		label := escapeLabel(node.Name())
		if len(node.Approvers) > 0 {
			sep := ", "
			if node.Type == domain.NodeTypeSequential {
				sep = " → "
			}
			label = fmt.Sprintf("%s <br/> %s", label, escapeLabel(strings.Join(node.Approvers, sep)))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, conn := range wf.Connections {
		from := sanitizeMermaidID(conn.From)
		to := sanitizeMermaidID(conn.To)

		arrow := "-->"
		if node, ok := wf.Node(conn.From); ok && node.Type == domain.NodeTypeCondition {
			socket := conn.Socket()
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(socket))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, to))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef approved fill:#c8e6c9,stroke:#2e7d32,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef rejected fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || visited[safeID] || id == overlay.CurrentNode {
				continue
			}
			if _, ok := wf.Node(id); !ok {
				continue
			}
			visited[safeID] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
		}

		if overlay.CurrentNode != "" {
			class := "current"
			switch overlay.Status {
			case domain.StatusApproved:
				class = "approved"
			case domain.StatusRejected, domain.StatusWithdrawn:
				class = "rejected"
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(overlay.CurrentNode), class))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
