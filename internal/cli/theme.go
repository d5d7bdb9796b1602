package cli

import (
	"fmt"
	"strings"
)

// ColorRole identifies a semantic color in the theme.
type ColorRole int

const (
	RoleSuccess ColorRole = iota
	RoleError
	RoleWarn
	RoleInfo
	RoleHeading
	RoleMuted
	RolePrompt
)

// Theme maps color roles to ANSI escape sequences. An empty sequence
// leaves the text uncolored.
type Theme struct {
	Name   string
	Colors map[ColorRole]string
}

// The default theme sticks to the sixteen basic colors so it reads the
// same on every terminal.
var themes = map[string]*Theme{
	"default": {
		Name: "default",
		Colors: map[ColorRole]string{
			RoleSuccess: "\033[32m",
			RoleError:   "\033[31m",
			RoleWarn:    "\033[33m",
			RoleInfo:    "\033[36m",
			RoleHeading: "\033[1m",
			RoleMuted:   "\033[90m",
			RolePrompt:  "\033[35m",
		},
	},
	"bright": {
		Name: "bright",
		Colors: map[ColorRole]string{
			RoleSuccess: "\033[92m",
			RoleError:   "\033[91m",
			RoleWarn:    "\033[93m",
			RoleInfo:    "\033[96m",
			RoleHeading: "\033[1;97m",
			RoleMuted:   "\033[37m",
			RolePrompt:  "\033[95m",
		},
	},
	"plain": {
		Name:   "plain",
		Colors: map[ColorRole]string{},
	},
}

// currentTheme is the active theme.
var currentTheme = themes["default"]

// SetTheme changes the active theme. Returns an error if the name is unknown.
func SetTheme(name string) error {
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	currentTheme = t
	return nil
}

// CurrentThemeName returns the name of the active theme.
func CurrentThemeName() string {
	return currentTheme.Name
}

// ThemeNames returns the list of available theme names in display order.
func ThemeNames() []string {
	return []string{"default", "bright", "plain"}
}

// Colorize wraps msg in the current theme's color for the given role.
func Colorize(role ColorRole, msg string) string {
	if !ColorEnabled {
		return msg
	}
	c := currentTheme.Colors[role]
	if c == "" {
		return msg
	}
	return c + msg + reset
}

// Heading formats text in the theme's heading style.
func Heading(msg string) string {
	return Colorize(RoleHeading, msg)
}

// Muted formats text in the theme's muted color.
func Muted(msg string) string {
	return Colorize(RoleMuted, msg)
}

// Prompt formats an interactive prompt.
func Prompt(msg string) string {
	return Colorize(RolePrompt, msg)
}
