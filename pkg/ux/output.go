// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders recon results for the terminal.
//
// A Printer writes styled output when its writer is a terminal and plain
// output otherwise. Machine mode drops all decoration for scripts.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")
	ColorWarning     = lipgloss.Color("#F4D03F")
	ColorError       = lipgloss.Color("#E74C3C")
)

// Mode controls how much decoration a Printer emits.
type Mode int

const (
	// ModeStyled uses colors, icons and boxes.
	ModeStyled Mode = iota

	// ModePlain keeps icons and layout but no colors.
	ModePlain

	// ModeMachine writes undecorated "KEY: value" lines.
	ModeMachine
)

// ParseMode converts "styled", "plain" or "machine" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "styled":
		return ModeStyled, nil
	case "plain":
		return ModePlain, nil
	case "machine":
		return ModeMachine, nil
	default:
		return 0, fmt.Errorf("unknown output mode %q", s)
	}
}

// Styles are the lipgloss styles of a styled Printer.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// DefaultStyles returns the recon palette.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
		Label:   lipgloss.NewStyle().Foreground(ColorTealPrimary),
		Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
		Success: lipgloss.NewStyle().Foreground(ColorTealBright),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
	}
}

// Printer writes user-facing output.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	w      io.Writer
	mode   Mode
	styles Styles
}

// NewPrinter returns a Printer for w. Styled output is downgraded to plain
// when w is not a terminal or NO_COLOR is set.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	if mode == ModeStyled && (!isTerminal(w) || os.Getenv("NO_COLOR") != "") {
		mode = ModePlain
	}
	return &Printer{w: w, mode: mode, styles: DefaultStyles()}
}

// Mode returns the effective mode.
func (p *Printer) Mode() Mode { return p.mode }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if p.mode != ModeStyled {
		return text
	}
	return s.Render(text)
}

// Title prints a heading. Machine mode skips it.
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.w, p.render(p.styles.Title, text))
}

// Success prints a completion line.
func (p *Printer) Success(text string) {
	p.status("OK", "✓", p.styles.Success, text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status("WARN", "⚠", p.styles.Warning, text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status("ERROR", "✗", p.styles.Error, text)
}

func (p *Printer) status(tag, icon string, s lipgloss.Style, text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "%s: %s\n", tag, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.render(s, icon), p.render(s, text))
}

// Field is one labelled value.
type Field struct {
	Label string
	Value string
}

// Fields prints aligned label/value lines.
func (p *Printer) Fields(fields []Field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}
	for _, f := range fields {
		if p.mode == ModeMachine {
			fmt.Fprintf(p.w, "%s\t%s\n", f.Label, f.Value)
			continue
		}
		label := fmt.Sprintf("%-*s", width, f.Label)
		fmt.Fprintf(p.w, "  %s  %s\n", p.render(p.styles.Label, label), f.Value)
	}
}

// Box prints content in a rounded box in styled mode and as a titled
// block otherwise.
func (p *Printer) Box(title, content string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "%s: %s\n", title, strings.ReplaceAll(content, "\n", " "))
	case ModePlain:
		fmt.Fprintf(p.w, "%s\n%s\n", title, content)
	default:
		fmt.Fprintln(p.w, p.styles.Box.Render(p.styles.Title.Render(title)+"\n"+content))
	}
}

// Muted prints secondary text. Machine mode skips it.
func (p *Printer) Muted(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.w, p.render(p.styles.Muted, text))
}
