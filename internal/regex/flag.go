package regex

import "fmt"

// Flag controls how a Regex's Match/MatchString interpret a compiled
// pattern: apply it as-is, invert it, or ignore it entirely (Noop).
type Flag int

const (
	// Default applies the pattern normally.
	Default Flag = iota
	// Invert returns true when the pattern does NOT match.
	Invert
	// Noop always matches, used for empty/wildcard patterns.
	Noop
)

func (f Flag) String() string {
	switch f {
	case Default:
		return "default"
	case Invert:
		return "invert"
	case Noop:
		return "noop"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// NewFlag parses a flag from its serialized string form.
func NewFlag(s string) (Flag, error) {
	switch s {
	case "default":
		return Default, nil
	case "invert":
		return Invert, nil
	case "noop":
		return Noop, nil
	default:
		return Default, fmt.Errorf("unknown regex flag: %q", s)
	}
}
