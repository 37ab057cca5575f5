// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the mnemo CLI.
//
// A Printer writes styled output when its destination is a terminal and
// plain tab-separated lines otherwise, so piped output stays greppable.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Label:   lipgloss.NewStyle().Foreground(ColorTealPrimary).Width(16),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Render returns the icon with its semantic color.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return Styles.Muted.Render(string(i))
	}
}

// Printer writes CLI output.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter styles output only when f is a terminal.
func NewPrinter(f *os.File) *Printer {
	fd := f.Fd()
	return &Printer{w: f, styled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

// NewPlainPrinter never styles.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Styled reports whether the printer emits ANSI styling.
func (p *Printer) Styled() bool { return p.styled }

// Writer returns the destination.
func (p *Printer) Writer() io.Writer { return p.w }

// Title prints a heading. Plain printers omit it.
func (p *Printer) Title(text string) {
	if !p.styled {
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Field prints one labelled value.
func (p *Printer) Field(label string, value any) {
	if !p.styled {
		fmt.Fprintf(p.w, "%s\t%v\n", label, value)
		return
	}
	fmt.Fprintf(p.w, "%s %v\n", Styles.Label.Render(label), value)
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if !p.styled {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if !p.styled {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Box prints lines inside a rounded border.
func (p *Printer) Box(title string, lines []string) {
	if !p.styled {
		for _, l := range lines {
			fmt.Fprintln(p.w, l)
		}
		return
	}
	body := Styles.Title.Render(title) + "\n" + strings.Join(lines, "\n")
	fmt.Fprintln(p.w, Styles.Box.Render(body))
}

// Table prints rows under a header. Plain printers emit tab-separated rows.
func (p *Printer) Table(header []string, rows [][]string) {
	if !p.styled {
		fmt.Fprintln(p.w, strings.Join(header, "\t"))
		for _, r := range rows {
			fmt.Fprintln(p.w, strings.Join(r, "\t"))
		}
		return
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}
	cells := func(vals []string, style lipgloss.Style) string {
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = style.Width(widths[i] + 2).Render(v)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}
	fmt.Fprintln(p.w, cells(header, Styles.Bold))
	for _, r := range rows {
		fmt.Fprintln(p.w, cells(r, lipgloss.NewStyle()))
	}
}

// ProgressBar renders current/total as a bar of the given width.
func (p *Printer) ProgressBar(current, total, width int) string {
	if !p.styled || total <= 0 {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := float64(current) / float64(total)
	filled := min(int(pct*float64(width)), width)
	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}
