// Package docstring normalizes routine documentation and splits it into a
// synopsis and a remainder. It also recovers call signatures written on the
// synopsis line, the way natively implemented routines document themselves.
package docstring

import (
	"regexp"
	"strings"
)

const tabWidth = 8

var signatureRe = regexp.MustCompile(`^([\w.]+)\((.*)\)`)

// Clean removes the indentation that documentation picks up from its
// position in source code. The first line is stripped of leading
// whitespace, the common indentation of the remaining lines is removed,
// and leading and trailing blank lines are dropped.
func Clean(doc string) string {
	if doc == "" {
		return ""
	}
	lines := strings.Split(expandTabs(doc), "\n")

	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeft(line, " ")
		if content == "" {
			continue
		}
		indent := len(line) - len(content)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \r")
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Split separates doc into its synopsis (the first paragraph) and the
// remainder. A paragraph ends at the first blank line.
func Split(doc string) (synopsis, remainder string) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "", ""
	}
	lines := strings.Split(doc, "\n")
	end := len(lines)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			end = i
			break
		}
	}
	synopsis = strings.Join(lines[:end], "\n")
	if end == len(lines) {
		return synopsis, ""
	}
	rest := lines[end:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}
	return synopsis, strings.TrimRight(strings.Join(rest, "\n"), " \t\r\n")
}

// Synopsis returns the first paragraph of doc.
func Synopsis(doc string) string {
	syn, _ := Split(doc)
	return syn
}

// IsDeprecated reports whether the synopsis of doc mentions deprecation.
func IsDeprecated(doc string) bool {
	return strings.Contains(strings.ToLower(Synopsis(doc)), "deprecated")
}

// MatchSignature reports whether line starts with a `name(args)` call form
// and returns its parts. It is a heuristic: the argument text is returned
// verbatim and never validated.
func MatchSignature(line string) (name, args string, ok bool) {
	m := signatureRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}
