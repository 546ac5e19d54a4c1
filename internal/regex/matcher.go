// LineMatcher compiles a continuation pattern against a
// library of named sub-patterns and tests a line for a match. Plain Go
// regular expressions are handled by the Regex type in regex.go (including its
// literal-string fast path); patterns that reference %{NAME}-style named
// sub-patterns are compiled through github.com/vjeantet/grok, the Go port
// of the same named-pattern library logstash itself ships with. Loading
// extra pattern directories is grok's AddPatternsFromPath, wired straight
// through from patternsDir.
package regex

import (
	"strings"

	"github.com/vjeantet/grok"
)

// Matcher is the compiled form of a continuation pattern. It is safe for
// concurrent use by multiple goroutines once constructed (both the regexp
// engine and grok's compiled patterns are read-only after Compile).
type Matcher struct {
	pattern string
	plain   *Regex
	grok    *grok.CompiledGrok
}

// hasNamedPattern reports whether pattern references a %{NAME} style
// sub-pattern, the signal that it must be routed to grok rather than the
// plain regexp engine.
func hasNamedPattern(pattern string) bool {
	return strings.Contains(pattern, "%{")
}

// NewMatcher compiles pattern, consulting patternsDir for grok pattern
// libraries when pattern uses named sub-patterns. Compile failure is
// fatal at registration, surfaced as a plain error for the caller
// (internal/assembler) to wrap as a ConfigError.
func NewMatcher(pattern string, patternsDir []string) (*Matcher, error) {
	if !hasNamedPattern(pattern) {
		re, err := New(pattern, Default)
		if err != nil {
			return nil, err
		}
		return &Matcher{pattern: pattern, plain: &re}, nil
	}

	g, err := grok.NewWithConfig(&grok.Config{NamedCapturesOnly: true})
	if err != nil {
		return nil, err
	}
	for _, dir := range patternsDir {
		if err := g.AddPatternsFromPath(dir); err != nil {
			return nil, err
		}
	}
	cg, err := g.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Matcher{pattern: pattern, grok: cg}, nil
}

// Pattern returns the original, uncompiled pattern string, for callers
// that want to report which continuation pattern is currently active
// (e.g. for rotation bookkeeping in a tailer built on this codec).
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match returns true when pattern matches anywhere in line, per the
// underlying engine's semantics. The caller (the Assembler's state
// machine), not Matcher, applies negate.
func (m *Matcher) Match(line []byte) bool {
	if m.grok != nil {
		return m.grok.Match(string(line))
	}
	return m.plain.Match(line)
}

// MatchString is the string-typed equivalent of Match.
func (m *Matcher) MatchString(line string) bool {
	if m.grok != nil {
		return m.grok.Match(line)
	}
	return m.plain.MatchString(line)
}
