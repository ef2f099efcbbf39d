package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Problem is the RFC 7807 application/problem+json body this server
// returns for every non-2xx/3xx/304 response (except HEAD, which carries
// no body at all). Grounded on pkg/httputil.ErrorResponse/WriteDetailedError
// in shape, extended with the Solid-protocol requirement-catalogue fields
// named in §6.
type Problem struct {
	Type            string `json:"type"`
	Title           string `json:"title"`
	Detail          string `json:"detail,omitempty"`
	Status          int    `json:"status"`
	Instance        string `json:"instance,omitempty"`
	Violated        string `json:"violated,omitempty"`
	RecourseAsPer   string `json:"recourse_as_per,omitempty"`
	ViolationDetail string `json:"violation_detail,omitempty"`
}

// newProblem builds a Problem whose type URI is the
// "urn:podspace:problem#<tag>" form named in §6.
func newProblem(status int, tag, title, detail string) Problem {
	return Problem{
		Type:   "urn:podspace:problem#" + url.PathEscape(tag),
		Title:  title,
		Detail: detail,
		Status: status,
	}
}

// newProblemViolated is newProblem plus the Violated field, for the
// handful of error cases §8's testable properties require to name the
// invariant they broke (e.g. "delete protect non-empty container", "URI
// trailing slash distinct").
func newProblemViolated(status int, tag, title, detail, violated string) Problem {
	p := newProblem(status, tag, title, detail)
	p.Violated = violated
	return p
}

// writeProblem renders p as an application/problem+json body at p.Status,
// skipped entirely for HEAD requests per §6 ("All failures produce
// application/problem+json unless the request was HEAD").
func writeProblem(w http.ResponseWriter, r *http.Request, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(p)
}
