package crawler

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxFilenameLength = 100

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	unsafeRe     = regexp.MustCompile(`[^\w\-_.]`)
	domainRe     = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	// Extensions stripped from URL path segments when deriving filenames.
	strippableExtensions = map[string]bool{
		"html": true, "htm": true, "php": true, "asp": true,
		"aspx": true, "xml": true, "org": true, "com": true, "net": true,
	}
)

// SanitizeFilename lowercases a name, replaces whitespace with
// underscores, drops unsafe characters, and caps the length.
func SanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespaceRe.ReplaceAllString(name, "_")
	name = unsafeRe.ReplaceAllString(name, "")
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	return name
}

// FilenameBase derives a filename for a crawled page: the page title if
// usable, otherwise the last URL path segment, the domain, or finally
// an indexed fallback.
func FilenameBase(title, pageURL string, index int) string {
	if base := SanitizeFilename(title); base != "" {
		return base
	}

	segments := make([]string, 0, 8)
	for _, seg := range strings.Split(pageURL, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) > 0 && (strings.EqualFold(segments[0], "http:") || strings.EqualFold(segments[0], "https:")) {
		segments = segments[1:]
	}
	var domain string
	if len(segments) > 0 && domainRe.MatchString(segments[0]) {
		domain = segments[0]
		segments = segments[1:]
	}

	if len(segments) > 0 {
		candidate := segments[len(segments)-1]
		if dot := strings.LastIndexByte(candidate, '.'); dot >= 0 {
			if strippableExtensions[strings.ToLower(candidate[dot+1:])] {
				candidate = candidate[:dot]
			}
		}
		if base := SanitizeFilename(candidate); base != "" {
			return base
		}
	}
	if base := SanitizeFilename(domain); base != "" {
		return base
	}
	return fmt.Sprintf("untitled_page_%d", index+1)
}

// UniquePath returns a path in dir for base that does not collide with
// an existing file, appending _1, _2, ... as needed.
func UniquePath(dir, base string) string {
	path := filepath.Join(dir, base+".md")
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.md", base, counter))
	}
}

// PruneMarkdown drops low-content lines from converted markdown. Lines
// shorter than minWords are kept only when they are headings or list
// items; runs of blank lines collapse to one.
func PruneMarkdown(markdown string, minWords int) string {
	lines := strings.Split(markdown, "\n")
	pruned := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(pruned) > 0 {
				pruned = append(pruned, "")
			}
			blank = true
			continue
		}
		blank = false

		if isStructuralLine(trimmed) || len(strings.Fields(trimmed)) >= minWords {
			pruned = append(pruned, line)
		}
	}

	// Trim a trailing blank line left by the collapse.
	for len(pruned) > 0 && pruned[len(pruned)-1] == "" {
		pruned = pruned[:len(pruned)-1]
	}
	return strings.Join(pruned, "\n")
}

// isStructuralLine reports whether a line carries structure worth
// keeping regardless of its word count.
func isStructuralLine(line string) bool {
	return strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "- ") ||
		strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "|")
}

// WordCount returns the number of whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
