package syncinfo

import (
	"regexp"
	"strings"
)

// DefaultIgnores are the patterns every folder ignores in addition to its
// own .cvsignore list, matching the stock client's built-in set.
var DefaultIgnores = []string{
	"RCS", "SCCS", "CVS", "CVS.adm", "RCSLOG", "cvslog.*",
	"tags", "TAGS", ".make.state", ".nse_depinfo",
	"*~", "#*", ".#*", ",*", "_$*", "*$",
	"*.old", "*.bak", "*.BAK", "*.orig", "*.rej", ".del-*",
	"*.a", "*.olb", "*.o", "*.obj", "*.so", "*.exe",
	"*.Z", "*.elc", "*.ln", "core",
}

// ClearMarker is the .cvsignore line that discards all accumulated patterns,
// built-in ones included.
const ClearMarker = "!"

// NameMatcher matches child leaf names against a compiled ignore-pattern
// list. The zero value matches nothing.
type NameMatcher struct {
	patterns []*regexp.Regexp
}

// CompileIgnores builds a matcher from per-folder patterns layered on the
// default set. A ClearMarker entry drops everything seen so far.
func CompileIgnores(patterns []string) *NameMatcher {
	m := &NameMatcher{}
	m.add(DefaultIgnores)
	for _, p := range patterns {
		if p == ClearMarker {
			m.patterns = m.patterns[:0]
			continue
		}
		m.add([]string{p})
	}
	return m
}

func (m *NameMatcher) add(patterns []string) {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("^" + globToRegex(p) + "$")
		if err != nil {
			// An unparsable pattern matches nothing, like the stock client.
			continue
		}
		m.patterns = append(m.patterns, re)
	}
}

// Match reports whether the leaf name is ignored.
func (m *NameMatcher) Match(name string) bool {
	for _, re := range m.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// globToRegex converts an fnmatch-style ignore pattern to a regex string.
// Patterns match whole leaf names, so * and ? are unbounded within the name.
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				cls := pattern[i+1 : j]
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}
