package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/solidstack/podspace/pkg/access"
	"github.com/solidstack/podspace/pkg/repo"
	"github.com/solidstack/podspace/pkg/space"
)

const (
	ldpResourceIRI      = "http://www.w3.org/ns/ldp#Resource"
	ldpBasicContainer   = "http://www.w3.org/ns/ldp#BasicContainer"
	pimStorageIRI       = "http://www.w3.org/ns/pim/space#Storage"
	solidStorageDescIRI = "http://www.w3.org/ns/solid/terms#storageDescription"
	solidOwnerIRI       = "http://www.w3.org/ns/solid/terms#owner"
)

// writeLinkHeader renders rel/target pairs as repeated Link header entries
// (one header line per entry, matching how every Solid server and most
// HTTP clients expect multi-valued Link to be split).
func writeLinkHeader(w http.ResponseWriter, entries [][2]string) {
	for _, e := range entries {
		w.Header().Add("Link", fmt.Sprintf(`<%s>; rel="%s"`, e[0], e[1]))
	}
}

// resourceLinks builds the Link header entries for targetURI per §4.8's
// marshalling invariants: LDP type(s), the storage description link
// (always), storage-owner link (root only), and an aux link per aux kind
// recognised for this resource's kind.
func resourceLinks(sp *space.Space, targetURI string, kind space.ResourceKind) [][2]string {
	var links [][2]string
	links = append(links, [2]string{ldpResourceIRI, "type"})
	if kind == space.Container {
		links = append(links, [2]string{ldpBasicContainer, "type"})
	}
	if targetURI == sp.RootURI() {
		links = append(links, [2]string{pimStorageIRI, "type"})
		links = append(links, [2]string{sp.OwnerID(), solidOwnerIRI})
	}
	links = append(links, [2]string{sp.DescriptionURI(), solidStorageDescIRI})

	base := strings.TrimSuffix(targetURI, "/")
	for relType, auxKind := range sp.AuxPolicy().Kinds {
		allowed := false
		for _, sk := range auxKind.SubjectKinds {
			if sk == kind {
				allowed = true
				break
			}
		}
		if !allowed {
			continue
		}
		auxURI := base + "._aux/" + relType
		if auxKind.TargetKind == space.Container {
			auxURI += "/"
		}
		links = append(links, [2]string{auxURI, relType})
	}
	return links
}

// methodPolicy computes Allow/Accept-Post/Accept-Put/Accept-Patch for a
// resource, per §4.8's "Method policy": the root and its root ACR never
// accept DELETE; only containers accept POST.
func methodPolicy(sp *space.Space, targetURI string, kind space.ResourceKind, exists bool) (allow, acceptPost, acceptPut, acceptPatch string) {
	methods := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	rootACRURI := sp.RootURI() + "._aux/" + sp.AccessControlRelType()
	isUndeleteable := targetURI == sp.RootURI() || targetURI == rootACRURI

	if kind == space.Container {
		methods = append(methods, http.MethodPost)
		acceptPost = "text/turtle, application/ld+json"
	}
	methods = append(methods, http.MethodPut)
	acceptPut = "text/turtle, application/ld+json, application/octet-stream"
	if exists {
		methods = append(methods, http.MethodPatch)
		acceptPatch = "text/n3"
	}
	if exists && !isUndeleteable {
		methods = append(methods, http.MethodDelete)
	}
	return strings.Join(methods, ", "), acceptPost, acceptPut, acceptPatch
}

// writeCORS sets the CORS response headers emitted on every response
// (success and error alike), echoing the request's own Origin.
func writeCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, DPoP, If-Match, If-None-Match, If-Modified-Since, If-Unmodified-Since, If-Range, Link, Slug, Range")
	w.Header().Set("Access-Control-Expose-Headers", "Location, ETag, Link, Allow, Accept-Post, Accept-Put, Accept-Patch, Wac-Allow, Content-Range, Accept-Ranges")
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST, PUT, PATCH, DELETE")
}

// writeWacAllow renders the Wac-Allow header from the resolved grants
// stamped on ctx by the access-control layer (§4.6.3's
// ResolvedAccessControl, rendered per §4.8's marshalling invariants).
func writeWacAllow(w http.ResponseWriter, rac access.ResolvedAccessControl, hasResolved bool) {
	if !hasResolved {
		return
	}
	modes := make([]string, 0, len(rac.Granted))
	for _, m := range rac.Granted.Slice() {
		modes = append(modes, strings.TrimPrefix(string(m), "http://www.w3.org/ns/auth/acl#"))
	}
	scope := "user"
	if !rac.Credentials.Authenticated {
		scope = "public"
	}
	w.Header().Set("Wac-Allow", fmt.Sprintf(`%s="%s"`, scope, strings.Join(toLower(modes), " ")))
}

func toLower(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

// writeRepresentationHeaders sets the success-path headers common to
// GET/HEAD/PUT/PATCH responses that carry a representation.
func writeRepresentationHeaders(w http.ResponseWriter, rep repo.Representation) {
	if rep.ContentType != "" {
		w.Header().Set("Content-Type", rep.ContentType)
	}
	if rep.ContentLen >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(rep.ContentLen, 10))
	}
	if rep.ETag != "" {
		w.Header().Set("ETag", quoteETag(rep.ETag))
	}
	if !rep.LastModified.IsZero() {
		w.Header().Set("Last-Modified", rep.LastModified.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Vary", "Accept, Authorization, Origin")
}

func quoteETag(tag string) string {
	if strings.HasPrefix(tag, `"`) || strings.HasPrefix(tag, `W/"`) {
		return tag
	}
	return `"` + tag + `"`
}
