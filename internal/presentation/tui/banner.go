package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`      _                    __  __ `, "#818cf8"},
	{`  ___(_) __ _ _ __   ___  / _|/ _|`, "#a78bfa"},
	{` / __| |/ _' | '_ \ / _ \| |_| |_ `, "#c084fc"},
	{` \__ \ | (_| | | | | (_) |  _|  _|`, "#e879f9"},
	{` |___/_|\__, |_| |_|\___/|_| |_|  `, "#f472b6"},
	{`        |___/                     `, "#fb7185"},
}

// PrintBanner writes the signoff ASCII banner and version to w.
// Colors are dropped when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s\n\n", out.String("v"+version).Faint())
}
