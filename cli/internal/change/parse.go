package change

import (
	"regexp"
	"strconv"
	"strings"
)

// binaryMarker is the prefix git uses when a file is binary.
const binaryMarker = "Binary files "

var similarityRegex = regexp.MustCompile(`(?m)^similarity index (\d+)%$`)

// fileDiff is one file's section of a unified diff.
type fileDiff struct {
	path       string
	oldPath    string
	similarity int
	binary     bool
	body       string
	added      int
	removed    int
}

// parseUnifiedDiff splits the output of `git diff --no-color` into per-file
// sections keyed by the new-side path. Binary sections are kept with
// binary=true and no body so callers can still see the path.
func parseUnifiedDiff(out string) map[string]fileDiff {
	result := make(map[string]fileDiff)
	if strings.TrimSpace(out) == "" {
		return result
	}
	for _, section := range splitByFileSections(out) {
		section = strings.TrimRight(section, "\n")
		if strings.TrimSpace(section) == "" {
			continue
		}
		fd := parseFileSection(section)
		if fd.path == "" {
			continue
		}
		result[fd.path] = fd
	}
	return result
}

// splitByFileSections splits diff output by "diff --git " so each section is
// one file's diff (or one binary notice).
func splitByFileSections(out string) []string {
	const prefix = "diff --git "
	var sections []string
	start := 0
	for {
		i := strings.Index(out[start:], prefix)
		if i < 0 {
			if start < len(out) && strings.TrimSpace(out[start:]) != "" {
				sections = append(sections, out[start:])
			}
			break
		}
		pos := start + i
		if pos > start && strings.TrimSpace(out[start:pos]) != "" {
			sections = append(sections, out[start:pos])
		}
		start = pos
		next := strings.Index(out[start+len(prefix):], prefix)
		if next < 0 {
			sections = append(sections, out[start:])
			break
		}
		sections = append(sections, out[start:start+len(prefix)+next])
		start = start + len(prefix) + next
	}
	return sections
}

// parseFileSection extracts paths, rename similarity, binary flag, body, and
// line counts from one "diff --git" section.
func parseFileSection(section string) fileDiff {
	var fd fileDiff
	lines := strings.Split(section, "\n")

	var pathA, pathB string
	bodyStart := -1
	for i, line := range lines {
		if bodyStart >= 0 {
			break // header lines never follow the first +++ line
		}
		switch {
		case strings.HasPrefix(line, "diff --git "):
			pathA, pathB = parseDiffGitLine(line)
		case strings.HasPrefix(line, "rename from "):
			fd.oldPath = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			pathB = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, binaryMarker):
			fd.binary = true
		case strings.HasPrefix(line, "--- "):
			if p := parsePathLine(line, "--- "); p != "" && p != "/dev/null" {
				pathA = p
			}
		case strings.HasPrefix(line, "+++ "):
			if p := parsePathLine(line, "+++ "); p != "" && p != "/dev/null" {
				pathB = p
			}
			if bodyStart < 0 {
				bodyStart = i + 1
			}
		}
	}
	if m := similarityRegex.FindStringSubmatch(section); m != nil {
		fd.similarity, _ = strconv.Atoi(m[1])
	}

	fd.path = pathB
	if fd.path == "" {
		fd.path = pathA
	}
	if fd.binary || bodyStart < 0 || bodyStart >= len(lines) {
		return fd
	}

	body := lines[bodyStart:]
	fd.body = strings.Join(body, "\n")
	for _, line := range body {
		switch {
		case strings.HasPrefix(line, "+"):
			fd.added++
		case strings.HasPrefix(line, "-"):
			fd.removed++
		}
	}
	return fd
}

func parseDiffGitLine(line string) (a, b string) {
	// "diff --git a/path b/path"
	rest := strings.TrimPrefix(line, "diff --git ")
	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		a = trimDiffPath(parts[0])
		b = trimDiffPath(parts[1])
	}
	return a, b
}

func trimDiffPath(s string) string {
	if len(s) >= 2 && (s[0] == 'a' || s[0] == 'b') && s[1] == '/' {
		return s[2:]
	}
	return s
}

func parsePathLine(line, prefix string) string {
	s := strings.TrimPrefix(line, prefix)
	// "/dev/null" or "a/path" or "b/path"
	if idx := strings.Index(s, "\t"); idx >= 0 {
		s = s[:idx]
	}
	return trimDiffPath(s)
}
