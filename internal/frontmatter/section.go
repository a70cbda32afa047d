package frontmatter

import "strings"

type heading struct {
	line  int
	level int
	title string
}

// ExtractSection returns the content below the first heading whose title
// equals name (case-insensitive), up to the next heading of the same or a
// higher level. The heading line itself is not included and surrounding
// blank lines are trimmed.
func ExtractSection(body, name string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	hs := headings(body)

	for i, h := range hs {
		if !strings.EqualFold(h.title, strings.TrimSpace(name)) {
			continue
		}
		end := len(lines)
		for _, next := range hs[i+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}
		section := strings.Join(lines[h.line+1:end], "\n")
		return strings.Trim(section, "\n"), true
	}
	return "", false
}

// Headings returns the titles of all ATX headings in body, outside fenced
// code blocks, in document order.
func Headings(body string) []string {
	hs := headings(body)
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.title
	}
	return out
}

func headings(body string) []heading {
	var out []heading
	inFence := false
	for i, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if level, title, ok := parseHeading(line); ok {
			out = append(out, heading{line: i, level: level, title: title})
		}
	}
	return out
}

// parseHeading recognises "#".."######" followed by a space.
func parseHeading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	title := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	return level, title, true
}
