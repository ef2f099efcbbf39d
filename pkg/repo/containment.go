package repo

import (
	"context"
	"strings"

	"github.com/solidstack/podspace/pkg/object"
	"github.com/solidstack/podspace/pkg/rdf"
)

const (
	rdfType       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	ldpResource   = "http://www.w3.org/ns/ldp#Resource"
	ldpContainer  = "http://www.w3.org/ns/ldp#Container"
	ldpBasic      = "http://www.w3.org/ns/ldp#BasicContainer"
	ldpContains   = "http://www.w3.org/ns/ldp#contains"
	pimStorage    = "http://www.w3.org/ns/pim/space#Storage"
)

// containerEntry is one direct member surfaced by listContainerMembers.
type containerEntry struct {
	uri         string
	isContainer bool
}

// listContainerMembers lists containerURI's direct members, filtering out
// every backend entry that is one of the container's own aux-namespace or
// sidecar objects (their names carry a delimiter token no real slug may
// contain, per the semantic slot encoding's invariant).
func (r *BasicRepo) listContainerMembers(ctx context.Context, containerURI string) ([]containerEntry, error) {
	basePath, err := r.assoc.BasePath(containerURI)
	if err != nil {
		return nil, err
	}
	entries, err := r.store.List(ctx, basePath)
	if err != nil {
		if err == object.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]containerEntry, 0, len(entries))
	for _, e := range entries {
		name := e.Path
		if idx := strings.LastIndexByte(strings.TrimSuffix(name, "/"), '/'); idx >= 0 {
			name = name[idx+1:]
		}
		if name == "" || strings.Contains(name, object.AuxNSDelim) || strings.Contains(name, object.SidecarDelim) {
			continue
		}
		uri := containerURI + name
		if e.IsContainer {
			uri += "/"
		}
		out = append(out, containerEntry{uri: uri, isContainer: e.IsContainer})
	}
	return out, nil
}

// synthesizeContainerGraph builds the LDP triples a container's
// representation carries in addition to (or instead of) any stored body,
// per §4.5: own LDP type triples always; containment triples from
// preference Containment up; per-member type triples at preference All.
func (r *BasicRepo) synthesizeContainerGraph(ctx context.Context, containerURI string, pref ContainerPreference) (rdf.Graph, error) {
	self := rdf.NewIRI(containerURI)
	g := rdf.Graph{
		{Subject: self, Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(ldpBasic)},
		{Subject: self, Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(ldpContainer)},
		{Subject: self, Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(ldpResource)},
	}
	if containerURI == r.sp.RootURI() {
		g = append(g, rdf.Triple{Subject: self, Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(pimStorage)})
	}
	if pref < Containment {
		return g, nil
	}

	members, err := r.listContainerMembers(ctx, containerURI)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		g = append(g, rdf.Triple{Subject: self, Predicate: rdf.NewIRI(ldpContains), Object: rdf.NewIRI(m.uri)})
		if pref < All {
			continue
		}
		memberType := ldpResource
		if m.isContainer {
			memberType = ldpContainer
		}
		g = append(g, rdf.Triple{Subject: rdf.NewIRI(m.uri), Predicate: rdf.NewIRI(rdfType), Object: rdf.NewIRI(memberType)})
	}
	return g, nil
}
