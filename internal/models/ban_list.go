package models

import (
	"strings"
)

// Format is a game format with its own ban list.
type Format string

const (
	FormatRE Format = "RE" // Racial Edición
	FormatRL Format = "RL" // Racial Libre
	FormatLI Format = "LI" // Libre
)

// AllFormats returns every supported format
func AllFormats() []Format {
	return []Format{
		FormatRE,
		FormatRL,
		FormatLI,
	}
}

// ParseFormat maps user input to a Format. The second return is false for
// anything outside the three supported formats.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToUpper(strings.TrimSpace(s))) {
	case FormatRE:
		return FormatRE, true
	case FormatRL:
		return FormatRL, true
	case FormatLI:
		return FormatLI, true
	default:
		return "", false
	}
}

// Column is the cards table column holding this format's severity.
func (f Format) Column() string {
	return "ban_list_" + strings.ToLower(string(f))
}

// Severity is the ordinal ban-list value of a card in a format.
type Severity int

const (
	SeverityBanned       Severity = 0
	SeverityLimitedOne   Severity = 1
	SeverityLimitedTwo   Severity = 2
	SeverityUnrestricted Severity = 3
)

// Valid reports whether s is one of the four ordinal severities.
func (s Severity) Valid() bool {
	return s >= SeverityBanned && s <= SeverityUnrestricted
}

// MaxCopies is how many copies of the card a deck may hold in the format.
// Unrestricted cards fall back to the general deck rule.
func (s Severity) MaxCopies(defaultLimit int) int {
	if s == SeverityUnrestricted {
		return defaultLimit
	}
	return int(s)
}

func (s Severity) String() string {
	switch s {
	case SeverityBanned:
		return "banned"
	case SeverityLimitedOne:
		return "limited-1"
	case SeverityLimitedTwo:
		return "limited-2"
	case SeverityUnrestricted:
		return "unrestricted"
	default:
		return "invalid"
	}
}
