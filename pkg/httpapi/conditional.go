package httpapi

import (
	"net/http"
	"strings"
	"time"
)

// etag is one parsed entity-tag from an If-* header's comma-separated
// list: its opaque value and whether it carried the weak ("W/") prefix.
type etag struct {
	value string
	weak  bool
}

func parseETagList(header string) ([]etag, bool) {
	header = strings.TrimSpace(header)
	if header == "*" {
		return nil, true
	}
	var out []etag
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		e := etag{}
		if strings.HasPrefix(part, "W/") {
			e.weak = true
			part = part[2:]
		}
		e.value = strings.Trim(part, `"`)
		out = append(out, e)
	}
	return out, false
}

func parseOne(header string) etag {
	header = strings.TrimSpace(header)
	weak := strings.HasPrefix(header, "W/")
	if weak {
		header = header[2:]
	}
	return etag{value: strings.Trim(header, `"`), weak: weak}
}

// strongMatch implements RFC 7232 §2.3.2's strong comparison: equal
// opaque values and neither tag is weak. If-Match MUST use strong
// comparison, so a weak stored validator never satisfies an If-Match
// precondition (§4.9's "weak-validator rewriting so weak ETags don't
// satisfy If-Match").
func strongMatch(candidate etag, stored string) bool {
	rep := parseOne(stored)
	return !candidate.weak && !rep.weak && candidate.value == rep.value
}

// weakMatch implements RFC 7232 §2.3.2's weak comparison: equal opaque
// values regardless of either side's weak flag. If-None-Match uses weak
// comparison.
func weakMatch(candidate etag, stored string) bool {
	rep := parseOne(stored)
	return candidate.value == rep.value
}

// PreconditionResult is the outcome of evaluating a request's conditional
// headers against a representation's actual validators.
type PreconditionResult struct {
	// StatusCode is 0 if every applicable precondition passed, else 412
	// (Precondition Failed) or 304 (Not Modified).
	StatusCode int
}

// Passed reports whether every applicable precondition was satisfied.
func (p PreconditionResult) Passed() bool { return p.StatusCode == 0 }

// EvaluatePreconditions implements the RFC 7232 §6 precedence chain
// against the already-selected representation's ETag and LastModified,
// per §4.8's "evaluate preconditions against the actually selected
// representation's validators" (so that conneg/constant-override layers,
// which compose the ETag with a transformation tag, are what the request
// is actually checked against).
func EvaluatePreconditions(r *http.Request, etagVal string, lastMod time.Time, safeMethod bool) PreconditionResult {
	if im := r.Header.Get("If-Match"); im != "" {
		tags, star := parseETagList(im)
		if !star {
			matched := false
			for _, t := range tags {
				if strongMatch(t, etagVal) {
					matched = true
					break
				}
			}
			if !matched {
				return PreconditionResult{StatusCode: http.StatusPreconditionFailed}
			}
		}
	} else if ius := r.Header.Get("If-Unmodified-Since"); ius != "" {
		if t, err := http.ParseTime(ius); err == nil && lastMod.After(t.Add(time.Second)) {
			return PreconditionResult{StatusCode: http.StatusPreconditionFailed}
		}
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		tags, star := parseETagList(inm)
		matched := star
		if !star {
			for _, t := range tags {
				if weakMatch(t, etagVal) {
					matched = true
					break
				}
			}
		}
		if matched {
			if safeMethod {
				return PreconditionResult{StatusCode: http.StatusNotModified}
			}
			return PreconditionResult{StatusCode: http.StatusPreconditionFailed}
		}
	} else if ims := r.Header.Get("If-Modified-Since"); ims != "" && safeMethod {
		if t, err := http.ParseTime(ims); err == nil && !lastMod.After(t.Add(time.Second)) {
			return PreconditionResult{StatusCode: http.StatusNotModified}
		}
	}

	return PreconditionResult{}
}

// IfRangeSatisfied reports whether a Range header should be honoured: no
// If-Range header at all always honours Range; an If-Range validator must
// strong-match the selected representation (a weak or stale validator
// falls back to serving the full body, per RFC 7233 §3.2).
func IfRangeSatisfied(r *http.Request, etagVal string, lastMod time.Time) bool {
	ir := r.Header.Get("If-Range")
	if ir == "" {
		return true
	}
	if t, err := http.ParseTime(ir); err == nil {
		return !lastMod.After(t.Add(time.Second))
	}
	return strongMatch(parseOne(ir), etagVal)
}
