package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/signoff/pkg/domain"
)

// Report builds a markdown summary of an instance: where it stands and its audit trail.
// info may be nil for an instance that was never initialized.
func Report(inst *domain.Instance, info *domain.NodeInfo, history []domain.HistoryRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Instance `%s`\n\n", inst.ID)
	fmt.Fprintf(&sb, "- **Workflow:** %s\n", inst.WorkflowID)
	fmt.Fprintf(&sb, "- **Applicant:** %s\n", inst.ApplicantID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", inst.Status)

	if info != nil {
		fmt.Fprintf(&sb, "- **Node:** %s (%s)\n", info.NodeName, info.NodeType)
		if len(info.Approvers) > 0 {
			fmt.Fprintf(&sb, "- **Waiting on:** %s\n", strings.Join(info.Approvers, ", "))
		}
		if info.Progress != nil {
			fmt.Fprintf(&sb, "- **Progress:** %d/%d\n", info.Progress.Done, info.Progress.Total)
		}
	}

	sb.WriteString("\n## History\n\n")
	if len(history) == 0 {
		sb.WriteString("_No records._\n")
		return sb.String()
	}
	sb.WriteString("| # | Node | Actor | Action | Result | Comment |\n")
	sb.WriteString("|---|------|-------|--------|--------|---------|\n")
	for _, r := range history {
		actor := r.ActorName
		if actor == "" {
			actor = r.ActorID
		}
		if actor == "" {
			actor = "-"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\n",
			r.Seq, cell(r.NodeName), cell(actor), r.Action, cell(r.Result), cell(r.Comment))
	}
	return sb.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
