package rdf

import (
	"encoding/json"
)

// jsonLDValue is one object-position value in expanded JSON-LD form.
type jsonLDValue struct {
	ID       string `json:"@id,omitempty"`
	Value    string `json:"@value,omitempty"`
	Type     string `json:"@type,omitempty"`
	Language string `json:"@language,omitempty"`
}

// SerializeJSONLD renders a Graph as a flat, expanded JSON-LD document:
// one object per distinct subject, each predicate mapped to an array of
// values. This is a derived serialisation only (the conneg layer never
// needs to parse JSON-LD back into a Graph), grounded on spec §4.7's
// content-negotiation example ("Accept: application/ld+json").
func SerializeJSONLD(g Graph) []byte {
	type node struct {
		id    Term
		props map[string][]jsonLDValue
		order []string
	}
	bySubj := map[string]*node{}
	var subjOrder []string

	keyFor := func(t Term) string {
		if t.Kind == Blank {
			return "_:" + t.Value
		}
		return t.Value
	}

	for _, tr := range g {
		key := keyFor(tr.Subject)
		nd, ok := bySubj[key]
		if !ok {
			nd = &node{id: tr.Subject, props: map[string][]jsonLDValue{}}
			bySubj[key] = nd
			subjOrder = append(subjOrder, key)
		}
		pred := tr.Predicate.Value
		if _, seen := nd.props[pred]; !seen {
			nd.order = append(nd.order, pred)
		}
		var v jsonLDValue
		switch tr.Object.Kind {
		case IRI:
			v = jsonLDValue{ID: tr.Object.Value}
		case Blank:
			v = jsonLDValue{ID: "_:" + tr.Object.Value}
		default:
			v = jsonLDValue{Value: tr.Object.Value, Type: tr.Object.Datatype, Language: tr.Object.Lang}
		}
		nd.props[pred] = append(nd.props[pred], v)
	}

	docs := make([]map[string]interface{}, 0, len(subjOrder))
	for _, key := range subjOrder {
		nd := bySubj[key]
		doc := map[string]interface{}{"@id": keyFor(nd.id)}
		for _, pred := range nd.order {
			doc[pred] = nd.props[pred]
		}
		docs = append(docs, doc)
	}

	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return []byte("[]")
	}
	return out
}
