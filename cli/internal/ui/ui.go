// Package ui renders pipeline progress and the final commit message on a
// terminal, and prompts for confirmation. ANSI colors are used only when
// writing to a terminal and NO_COLOR is unset.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

// Printer writes user-facing output. It satisfies the pipeline's Reporter.
type Printer struct {
	out   io.Writer
	in    *bufio.Reader
	color bool
}

// New builds a Printer writing to out and reading confirmations from in.
func New(out io.Writer, in io.Reader) *Printer {
	return &Printer{
		out:   out,
		in:    bufio.NewReader(in),
		color: colorEnabled(out),
	}
}

// colorEnabled reports whether out is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

// Track prints one line of multi-step progress.
func (p *Printer) Track(description string, done, total int) {
	fmt.Fprintf(p.out, "%s %s\n", p.paint(ansiDim, fmt.Sprintf("[%d/%d]", done, total)), description)
}

// Report prints a one-off status line, colored by status tag.
func (p *Printer) Report(status, detail string) {
	var code string
	switch status {
	case "warn":
		code = ansiYellow
	case "error":
		code = ansiRed
	case "retry":
		code = ansiCyan
	default:
		code = ansiDim
	}
	fmt.Fprintf(p.out, "%s %s\n", p.paint(code, status+":"), detail)
}

// Message prints the proposed commit message, subject highlighted.
func (p *Printer) Message(subject, body string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.paint(ansiBold+ansiGreen, subject))
	if body != "" {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, body)
	}
	fmt.Fprintln(p.out)
}

// Confirm asks question and reads a y/N answer. Empty input and EOF count
// as no.
func (p *Printer) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
