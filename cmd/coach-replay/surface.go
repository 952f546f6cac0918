// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/sagielster/DeviceLinkAssistant/lib/frame"
)

// colorMode is the --color setting.
type colorMode string

const (
	colorAuto   colorMode = "auto"
	colorAlways colorMode = "always"
	colorNever  colorMode = "never"
)

func parseColorMode(value string) (colorMode, error) {
	switch mode := colorMode(value); mode {
	case colorAuto, colorAlways, colorNever:
		return mode, nil
	}
	return "", fmt.Errorf("--color must be auto, always, or never, not %q", value)
}

// enabled reports whether out gets escape sequences.
func (mode colorMode) enabled(out io.Writer) bool {
	switch mode {
	case colorAlways:
		return true
	case colorNever:
		return false
	}
	file, ok := out.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// terminalWidth is the column count of out, or 0 when out is not a
// terminal.
func terminalWidth(out io.Writer) int {
	file, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// terminalSurface is an overlay.Surface that prints one line per
// overlay change. Lines wider than the terminal are cut.
type terminalSurface struct {
	out     io.Writer
	display frame.Display
	width   int

	statusStyle lipgloss.Style
	ringStyle   lipgloss.Style
	mutedStyle  lipgloss.Style
}

func newTerminalSurface(out io.Writer, display frame.Display, mode colorMode) *terminalSurface {
	profile := termenv.Ascii
	if mode.enabled(out) {
		profile = termenv.ANSI256
	}
	// WithProfile only reaches the termenv output; the renderer detects
	// its own profile from out, which is Ascii for anything but a TTY.
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return &terminalSurface{
		out:         out,
		display:     display,
		width:       terminalWidth(out),
		statusStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ringStyle:   renderer.NewStyle().Foreground(lipgloss.Color("10")),
		mutedStyle:  renderer.NewStyle().Faint(true),
	}
}

func (surface *terminalSurface) Attach() error {
	surface.line(surface.mutedStyle, fmt.Sprintf("overlay attached %dx%d @%.2f",
		surface.display.Width, surface.display.Height, surface.display.Density))
	return nil
}

func (surface *terminalSurface) PlaceRing(left, top, size int) {
	centerX, centerY := left+size/2, top+size/2
	surface.line(surface.ringStyle, fmt.Sprintf("◎ ring at %d,%d d=%d (%.0f%% across, %.0f%% down)",
		centerX, centerY, size,
		100*float64(centerX)/float64(max(surface.display.Width, 1)),
		100*float64(centerY)/float64(max(surface.display.Height, 1)),
	))
}

func (surface *terminalSurface) HideRing() {
	surface.line(surface.mutedStyle, "○ ring hidden")
}

func (surface *terminalSurface) SetStatusText(text string) {
	surface.line(surface.statusStyle, "▌ "+text)
}

func (surface *terminalSurface) Close() error {
	surface.line(surface.mutedStyle, "overlay closed")
	return nil
}

func (surface *terminalSurface) line(style lipgloss.Style, text string) {
	rendered := style.Render(text)
	if surface.width > 0 {
		rendered = ansi.Truncate(rendered, surface.width, "…")
	}
	fmt.Fprintln(surface.out, rendered)
}
