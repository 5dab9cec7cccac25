// Package langmeta provides display metadata (native name, emoji flag) for
// catalog language codes, used by the CLI status output.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Code string
	Name string
	Flag string
}

// Label returns "flag Name (code)", dropping the parts that are unknown.
func (m Meta) Label() string {
	var b strings.Builder
	if m.Flag != "" {
		b.WriteString(m.Flag)
		b.WriteByte(' ')
	}
	if m.Name != "" && m.Name != m.Code {
		b.WriteString(m.Name)
		b.WriteString(" (")
		b.WriteString(m.Code)
		b.WriteByte(')')
		return b.String()
	}
	b.WriteString(m.Code)
	return b.String()
}

// Resolve returns metadata for lang. Codes such as pt_BR and pt-br are
// accepted; unknown codes come back with only Code set.
func Resolve(lang string) Meta {
	code := canonicalize(lang)
	m := Meta{Code: code}
	tag, err := language.Parse(code)
	if err != nil || code == "" {
		m.Name = lang
		m.Code = lang
		return m
	}
	if name := display.Self.Name(tag); name != "" {
		m.Name = upperFirst(name)
	}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = FlagFromRegion(region.String())
	}
	return m
}

// FlagFromRegion turns a two-letter region code into its emoji flag.
func FlagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var b strings.Builder
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

func upperFirst(s string) string {
	for i, r := range s {
		return strings.ToUpper(string(r)) + s[i+len(string(r)):]
	}
	return s
}
