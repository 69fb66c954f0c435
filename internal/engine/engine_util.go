package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxNameRunes = 24

func NewState(rules Rules) *State {
	return &State{
		Phase: PhaseWaiting,
		Items: map[string]*DataItem{},
		Rules: rules,
	}
}

func ParseRole(role string) (Role, bool) {
	switch Role(role) {
	case RoleFactionA, RoleFactionB, RoleObserver:
		return Role(role), true
	default:
		return "", false
	}
}

// NormalizeName returns an NFC, control-free, trimmed display name of at most
// 24 runes, or fallback when nothing printable is left.
func NormalizeName(name, fallback string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if r := []rune(name); len(r) > maxNameRunes {
		name = strings.TrimSpace(string(r[:maxNameRunes]))
	}
	if name == "" {
		return fallback
	}
	return name
}
