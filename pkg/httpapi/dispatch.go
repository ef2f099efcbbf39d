package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/solidstack/podspace/pkg/observability"
	"github.com/solidstack/podspace/pkg/space"
)

// QueryParamMode governs whether a request's query string participates in
// resource identity (§6's req_target_query_param_mode).
type QueryParamMode int

const (
	// Significant leaves the request's query string in place (the
	// default). Resource URIs are built from the path alone (see
	// requestURI), so the query string does not take part in resource
	// identity in this mode either.
	Significant QueryParamMode = iota
	// Insignificant strips the query string before resolving, so
	// "/foo?x=1" and "/foo" name the same resource.
	Insignificant
)

// Dispatcher is the namespace-validating front door: it rejects requests
// outside the storage's own namespace, applies the configured
// query-param mode, enforces the mandatory-Content-Type rule for
// POST/PUT/PATCH, and otherwise hands off to Service.
//
// Grounded on the teacher's pkg/api.Server (mux.Router with a catch-all
// NotFoundHandler and a chain of middleware wrapping every route); unlike
// the teacher's fixed small route table, every URI under the storage root
// is a legal route here, so a single mux.Router PathPrefix route is
// registered rather than one route per resource type.
type Dispatcher struct {
	svc      *Service
	sp       *space.Space
	qpMode   QueryParamMode
	router   *mux.Router
}

// NewDispatcher builds a Dispatcher serving svc's storage space.
func NewDispatcher(svc *Service, qpMode QueryParamMode) *Dispatcher {
	d := &Dispatcher{svc: svc, sp: svc.Repo.Space(), qpMode: qpMode}
	r := mux.NewRouter()
	r.PathPrefix("/").HandlerFunc(d.route)
	d.router = r
	return d
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

// route recovers a panicking handler into a 500 problem+json response
// instead of crashing the request's goroutine, using
// observability.RecoverPanicWithCallback when a logger is configured so
// the panic and its stack trace are captured structurally.
func (d *Dispatcher) route(w http.ResponseWriter, r *http.Request) {
	if d.svc.Log != nil {
		defer observability.RecoverPanicWithCallback(d.svc.Log, "http request handler", func() {
			writeCORS(w, r)
			writeProblem(w, r, newProblem(http.StatusInternalServerError, "internal-error", "internal error", "the request handler panicked"))
		})
	} else {
		defer func() {
			if rec := recover(); rec != nil {
				writeCORS(w, r)
				writeProblem(w, r, newProblem(http.StatusInternalServerError, "internal-error", "internal error", "the request handler panicked"))
			}
		}()
	}

	if d.qpMode == Insignificant {
		r.URL.RawQuery = ""
	}

	targetURI := requestURI(r)
	if !d.sp.IsInNamespace(targetURI) {
		writeCORS(w, r)
		writeProblem(w, r, newProblem(http.StatusNotFound, "outside-namespace", "resource is outside this storage's namespace", ""))
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if r.Header.Get("Content-Type") == "" {
			writeCORS(w, r)
			writeProblem(w, r, newProblem(http.StatusBadRequest, "missing-content-type", "Content-Type is required", r.Method+" requires a Content-Type header"))
			return
		}
	}

	d.svc.ServeHTTP(w, r)
}
