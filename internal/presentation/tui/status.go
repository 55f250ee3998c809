package tui

import (
	"io"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/muesli/termenv"
)

// Printer colors short status lines for the terminal.
type Printer struct {
	out *termenv.Output
}

// NewPrinter creates a Printer for w. Non-terminal writers get plain text.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: termenv.NewOutput(w)}
}

// Ok marks s as a success.
func (p *Printer) Ok(s string) string {
	return p.out.String("✓ " + s).Foreground(p.out.Color("#22c55e")).String()
}

// Fail marks s as a failure.
func (p *Printer) Fail(s string) string {
	return p.out.String("✗ " + s).Foreground(p.out.Color("#ef4444")).String()
}

// Warn marks s as a warning.
func (p *Printer) Warn(s string) string {
	return p.out.String(s).Foreground(p.out.Color("#eab308")).String()
}

// Status renders an instance status in its color.
func (p *Printer) Status(s domain.Status) string {
	color := "#eab308"
	switch s {
	case domain.StatusApproved:
		color = "#22c55e"
	case domain.StatusRejected:
		color = "#ef4444"
	case domain.StatusWithdrawn:
		color = "#9ca3af"
	}
	return p.out.String(string(s)).Foreground(p.out.Color(color)).Bold().String()
}
