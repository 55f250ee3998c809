package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	inst := &domain.Instance{ID: "i-1", WorkflowID: "expense", ApplicantID: "dave", Status: domain.StatusPending}
	info := &domain.NodeInfo{
		NodeName:  "Finance",
		NodeType:  domain.NodeTypeParallel,
		Approvers: []string{"carol"},
		Progress:  &domain.Progress{Done: 1, Total: 2},
	}
	history := []domain.HistoryRecord{
		{Seq: 1, NodeName: "start", Action: domain.ActionSubmit, ActorID: "dave"},
		{Seq: 2, NodeName: "Finance", Action: domain.ActionApprove, ActorID: "bob", ActorName: "Bob", Result: "approve", Comment: "ok | fine"},
	}

	md := Report(inst, info, history)

	assert.Contains(t, md, "# Instance `i-1`")
	assert.Contains(t, md, "**Waiting on:** carol")
	assert.Contains(t, md, "**Progress:** 1/2")
	assert.Contains(t, md, "| 2 | Finance | Bob | approve | approve | ok \\| fine |")
}

func TestReport_NoHistory(t *testing.T) {
	md := Report(&domain.Instance{ID: "i-2", Status: domain.StatusPending}, nil, nil)
	assert.Contains(t, md, "_No records._")
	assert.NotContains(t, md, "Waiting on")
}

func TestRenderer(t *testing.T) {
	out, err := NewRenderer()("# Title\n\nbody text\n")
	require.NoError(t, err)
	assert.Contains(t, out, "body text")
}

func TestPrinter_PlainOnNonTerminal(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{})
	assert.Equal(t, "✓ leave", p.Ok("leave"))
	assert.Equal(t, "approved", p.Status(domain.StatusApproved))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.False(t, strings.Contains(buf.String(), "\x1b["))
}
