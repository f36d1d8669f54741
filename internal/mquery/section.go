// Package mquery parses Power Query M "section documents" (the
// Formulas/Section1.m text inside a DataMashup payload) into their
// shared member declarations and renders a section in a canonical,
// member-sorted text form for comparison. The package has no diff of
// its own: internal/workbook uses the canonical text as a Power Query
// object's definition, so any member change shows as one changed
// object for the whole section. Grounded on
// original_source/core/src/m_section.rs; that file's accompanying
// m_ast_diff/apted.rs does full tree-edit-distance over a parsed M AST,
// which this package does not attempt — expressions stay opaque text
// (see DESIGN.md's internal/mquery section).
package mquery

import (
	"fmt"
	"strings"
)

// Member is one "shared <name> = <expression>;" declaration.
type Member struct {
	Name       string
	Expression string
}

// Section is a parsed M section document: its header name and the
// shared members it declares. Only shared members are kept because
// those are the ones a query consumer can reference by name; private
// "let"-only helpers inside an
// expression are part of that member's Expression text.
type Section struct {
	Name    string
	Members []Member
}

// ParseSection parses source per m_section.rs's member grammar: a
// "section <name>;" header followed by zero or more
// "shared <name> = <expr>;" statements, where <expr> may span multiple
// lines and ends at the first semicolon after the "=". A semicolon
// inside a string literal, comment or bracket also ends it.
func ParseSection(source string) (*Section, error) {
	lines := strings.Split(stripBOM(source), "\n")

	name, bodyStart, err := findSectionName(lines)
	if err != nil {
		return nil, err
	}

	section := &Section{Name: name}
	i := bodyStart
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			i++
			continue
		}
		if !strings.HasPrefix(trimmed, "shared") {
			i++
			continue
		}

		member, consumed, ok := parseSharedMember(lines[i:])
		if !ok {
			return nil, fmt.Errorf("mquery: invalid member syntax at line %d", i+1)
		}
		section.Members = append(section.Members, member)
		i += consumed
	}

	return section, nil
}

func findSectionName(lines []string) (string, int, error) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		rest, ok := strings.CutPrefix(trimmed, "section")
		if !ok {
			return "", 0, fmt.Errorf("mquery: missing section header")
		}
		if rest != "" && !startsWithSpace(rest) {
			return "", 0, fmt.Errorf("mquery: invalid section header")
		}

		body := strings.TrimLeft(rest, " \t")
		if !strings.HasSuffix(body, ";") {
			return "", 0, fmt.Errorf("mquery: invalid section header")
		}
		nameCandidate := strings.TrimSpace(body[:len(body)-1])
		if nameCandidate == "" || strings.ContainsAny(nameCandidate, " \t") {
			return "", 0, fmt.Errorf("mquery: invalid section header")
		}
		if !isValidIdentifier(nameCandidate) {
			return "", 0, fmt.Errorf("mquery: invalid section header")
		}
		return nameCandidate, i + 1, nil
	}
	return "", 0, fmt.Errorf("mquery: missing section header")
}

func startsWithSpace(s string) bool {
	return len(s) > 0 && (s[0] == ' ' || s[0] == '\t')
}

// parseSharedMember parses "shared <name> = <expr>;" starting at
// lines[0], consuming as many subsequent lines as needed to find the
// terminating semicolon. Returns the number of lines consumed.
func parseSharedMember(lines []string) (Member, int, bool) {
	trimmed := strings.TrimSpace(lines[0])
	rest, ok := strings.CutPrefix(trimmed, "shared")
	if !ok {
		return Member{}, 0, false
	}
	if rest != "" && !startsWithSpace(rest) {
		return Member{}, 0, false
	}
	body := strings.TrimLeft(rest, " \t")
	if body == "" {
		return Member{}, 0, false
	}

	name, afterName, ok := parseIdentifier(body)
	if !ok {
		return Member{}, 0, false
	}

	eqIdx := strings.IndexByte(afterName, '=')
	if eqIdx < 0 || strings.TrimSpace(afterName[:eqIdx]) != "" {
		return Member{}, 0, false
	}
	exprSource := afterName[eqIdx+1:]

	if semi := strings.IndexByte(exprSource, ';'); semi >= 0 {
		return Member{Name: name, Expression: strings.TrimSpace(exprSource[:semi])}, 1, true
	}

	var sb strings.Builder
	sb.WriteString(exprSource)
	for i := 1; i < len(lines); i++ {
		sb.WriteByte('\n')
		sb.WriteString(lines[i])
		if semi := strings.IndexByte(lines[i], ';'); semi >= 0 {
			full := sb.String()
			cut := len(full) - (len(lines[i]) - semi)
			return Member{Name: name, Expression: strings.TrimSpace(full[:cut])}, i + 1, true
		}
	}
	return Member{}, 0, false
}

func parseIdentifier(text string) (name string, rest string, ok bool) {
	trimmed := strings.TrimLeft(text, " \t")
	if trimmed == "" {
		return "", "", false
	}
	if strings.HasPrefix(trimmed, "#\"") {
		return parseQuotedIdentifier(trimmed)
	}
	return parseUnquotedIdentifier(trimmed)
}

func parseUnquotedIdentifier(text string) (string, string, bool) {
	end := 0
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '=' {
			break
		}
		end += len(string(r))
	}
	if end == 0 {
		return "", "", false
	}
	name, rest := text[:end], text[end:]
	if !isValidIdentifier(name) {
		return "", "", false
	}
	return name, rest, true
}

func parseQuotedIdentifier(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "#\"") {
		return "", "", false
	}
	body := text[2:]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '"' {
			if i+1 < len(body) && body[i+1] == '"' {
				sb.WriteByte('"')
				i++
				continue
			}
			return sb.String(), body[i+1:], true
		}
		sb.WriteByte(body[i])
	}
	return "", "", false
}

func isValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, string(rune(0xFEFF)))
}

// Canonicalize produces a deterministic, whitespace-normalized
// rendering of source for comparison purposes: members sorted by name,
// each expression's surrounding whitespace trimmed. Falls back to a
// simply trimmed copy of source when it does not parse as a section
// document at all (malformed or a non-M fragment some exporter wrote).
func Canonicalize(source string) string {
	section, err := ParseSection(source)
	if err != nil {
		return strings.TrimSpace(stripBOM(source))
	}

	members := make([]Member, len(section.Members))
	copy(members, section.Members)
	sortMembersByName(members)

	var sb strings.Builder
	fmt.Fprintf(&sb, "section %s;\n", section.Name)
	for _, m := range members {
		fmt.Fprintf(&sb, "shared %s = %s;\n", m.Name, m.Expression)
	}
	return sb.String()
}

func sortMembersByName(members []Member) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && members[j-1].Name > members[j].Name; j-- {
			members[j-1], members[j] = members[j], members[j-1]
		}
	}
}
