package aliasing

import (
	"log/slog"
	"regexp"
	"strings"
)

type (
	compiledPattern struct {
		regex     *regexp.Regexp
		canonical string
	}

	// Resolver rewrites dataset URNs with the first matching pattern.
	// It is immutable after construction and safe for concurrent use.
	//
	// Pattern syntax:
	//   - {var} captures one path segment (no "/")
	//   - {var*} captures the rest, slashes included
	//   - everything else matches literally
	Resolver struct {
		patterns []compiledPattern
	}
)

var variableRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(\*?)\}`)

// compilePattern turns "lake/{name}" into ^lake/(?P<name>[^/]+)$.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder

	b.WriteString("^")

	last := 0

	for _, loc := range variableRegex.FindAllStringSubmatchIndex(pattern, -1) {
		b.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))

		name := pattern[loc[2]:loc[3]]
		if loc[5] > loc[4] {
			b.WriteString("(?P<" + name + ">.+)")
		} else {
			b.WriteString("(?P<" + name + ">[^/]+)")
		}

		last = loc[1]
	}

	b.WriteString(regexp.QuoteMeta(pattern[last:]))
	b.WriteString("$")

	return regexp.Compile(b.String())
}

// NewResolver compiles the patterns of cfg. Patterns with an empty side or that fail
// to compile are skipped with a warning. A nil cfg gives a passthrough resolver.
func NewResolver(cfg *Config) *Resolver {
	r := &Resolver{}
	if cfg == nil {
		return r
	}

	for _, dp := range cfg.DatasetPatterns {
		pattern := strings.TrimSpace(dp.Pattern)
		canonical := strings.TrimSpace(dp.Canonical)

		if pattern == "" || canonical == "" {
			slog.Warn("Skipping incomplete dataset pattern",
				slog.String("pattern", pattern),
				slog.String("canonical", canonical))

			continue
		}

		regex, err := compilePattern(pattern)
		if err != nil {
			slog.Warn("Skipping invalid dataset pattern",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))

			continue
		}

		r.patterns = append(r.patterns, compiledPattern{regex: regex, canonical: canonical})
	}

	return r
}

// PatternCount returns the number of usable patterns.
func (r *Resolver) PatternCount() int {
	if r == nil {
		return 0
	}

	return len(r.patterns)
}

// Resolve returns the canonical URN for urn, or urn itself when no pattern matches.
func (r *Resolver) Resolve(urn string) string {
	if r == nil || urn == "" {
		return urn
	}

	for _, cp := range r.patterns {
		match := cp.regex.FindStringSubmatch(urn)
		if match == nil {
			continue
		}

		result := cp.canonical

		for i, name := range cp.regex.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}

			result = strings.ReplaceAll(result, "{"+name+"}", match[i])
			result = strings.ReplaceAll(result, "{"+name+"*}", match[i])
		}

		return result
	}

	return urn
}
