package repolayers

import (
	"sort"
	"strconv"
	"strings"
)

// acceptEntry is one parsed Accept media-range with its quality value, in
// the order it appeared in the header.
type acceptEntry struct {
	mediaType string
	q         float64
}

func (e acceptEntry) matches(ct string) bool {
	return e.mediaType == "*/*" || e.mediaType == ct
}

// parseAccept parses an Accept header into its media ranges, sorted by
// descending quality (ties preserve header order, so entries[0] is always
// the highest-precedence value).
func parseAccept(header string) []acceptEntry {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	entries := make([]acceptEntry, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segs := strings.Split(p, ";")
		mt := strings.TrimSpace(segs[0])
		q := 1.0
		for _, param := range segs[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					q = parsed
				}
			}
		}
		entries = append(entries, acceptEntry{mediaType: mt, q: q})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].q > entries[j].q })
	return entries
}

func mediaRangeMatches(ranges []string, ct string) bool {
	for _, r := range ranges {
		if r == "*/*" || r == ct {
			return true
		}
	}
	return false
}

// composeETag renders a derived ETag per §3's "base ETag composes with a
// tag describing any transformation" rule: base·tag(arg).
func composeETag(base, tag, arg string) string {
	if base == "" {
		return base
	}
	trimmed := strings.Trim(base, `"`)
	return `"` + trimmed + "·" + tag + "(" + arg + ")" + `"`
}
