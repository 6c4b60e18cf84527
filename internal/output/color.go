package output

import (
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"
)

// Styles holds the lipgloss styles for terminal output.
type Styles struct {
	Path      lipgloss.Style
	LineNum   lipgloss.Style
	Separator lipgloss.Style
	Match     lipgloss.Style
	Ellipsis  lipgloss.Style
	Tag       lipgloss.Style
	Scope     lipgloss.Style
	Revision  lipgloss.Style
}

// NewStyles creates the default color styles.
func NewStyles() Styles {
	return Styles{
		Path:      lipgloss.NewStyle().Foreground(lipgloss.Color("5")),             // magenta
		LineNum:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),             // green
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),             // cyan
		Match:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true), // bold red
		Ellipsis:  lipgloss.NewStyle().Faint(true),
		Tag:       lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("3")),
		Scope:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		Revision:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// NoStyles returns styles with no coloring.
func NoStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Path:      plain,
		LineNum:   plain,
		Separator: plain,
		Match:     plain,
		Ellipsis:  plain,
		Tag:       plain,
		Scope:     plain,
		Revision:  plain,
	}
}

// IsTerminal checks if the given file descriptor is a terminal using ioctl.
func IsTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}
