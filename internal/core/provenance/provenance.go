// Package provenance owns the PAGE_NUM=<n> sentinel convention: it is the
// only place that writes page markers into document text and the only place
// that reads them back out of chunks.
package provenance

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var markerRe = regexp.MustCompile(`PAGE_NUM=(\d+)`)

// Marker returns the sentinel token for page n.
func Marker(n int) string {
	return fmt.Sprintf("PAGE_NUM=%d", n)
}

// WrapPage surrounds one page's text with its sentinel on both sides, so a
// chunk boundary falling anywhere inside the page still carries at least one
// marker for it.
func WrapPage(n int, text string) string {
	m := Marker(n)
	return m + "\n" + text + "\n" + m
}

// JoinPages wraps each page (1-based) and concatenates them into the full
// document text.
func JoinPages(pages []string) string {
	parts := make([]string, 0, len(pages))
	for i, p := range pages {
		parts = append(parts, WrapPage(i+1, p))
	}
	return strings.Join(parts, "\n\n")
}

// Resolve scans text for page sentinels and returns the distinct page
// numbers, sorted ascending. An empty result is a valid outcome: the text
// simply carries no marker.
func Resolve(text string) []int {
	matches := markerRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = struct{}{}
	}
	pages := make([]int, 0, len(seen))
	for n := range seen {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages
}

// Strip removes all page sentinels from text. Used when presenting chunk
// text to the user or to the language model.
func Strip(text string) string {
	out := markerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(out)
}

// SplitAround partitions text into alternating runs of plain text and
// sentinel markers, preserving every character. Each marker comes back as
// its own element so callers can treat it as atomic.
func SplitAround(text string) []string {
	idxs := markerRe.FindAllStringIndex(text, -1)
	if len(idxs) == 0 {
		return []string{text}
	}
	out := make([]string, 0, 2*len(idxs)+1)
	prev := 0
	for _, ix := range idxs {
		if ix[0] > prev {
			out = append(out, text[prev:ix[0]])
		}
		out = append(out, text[ix[0]:ix[1]])
		prev = ix[1]
	}
	if prev < len(text) {
		out = append(out, text[prev:])
	}
	return out
}

// IsMarker reports whether s is exactly one page sentinel.
func IsMarker(s string) bool {
	loc := markerRe.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
