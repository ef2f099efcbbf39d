package rdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const patchPrefixHeader = `@prefix solid: <http://www.w3.org/ns/solid/terms#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
`

func TestParsePatchBasic(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:where { <http://example.org/alice> foaf:age ?age } ;
			solid:inserts { <http://example.org/alice> foaf:age "31" } ;
			solid:deletes { <http://example.org/alice> foaf:age ?age } .
	`)
	p, err := ParsePatch(doc)
	require.NoError(t, err)
	require.Len(t, p.Where, 1)
	require.Len(t, p.Inserts, 1)
	require.Len(t, p.Deletes, 1)

	ops := p.EffectiveOps()
	require.Contains(t, ops, OpRead)
	require.Contains(t, ops, OpAppend)
	require.Contains(t, ops, OpWrite)
}

func TestParsePatchMissingTypeTriple(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p solid:where { <http://example.org/alice> foaf:age ?age } .
	`)
	_, err := ParsePatch(doc)
	require.ErrorIs(t, err, ErrPatchResourceCardinality)
}

func TestParsePatchDuplicateFormula(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:where { <http://example.org/alice> foaf:age ?age } ;
			solid:where { <http://example.org/alice> foaf:age ?age2 } .
	`)
	_, err := ParsePatch(doc)
	require.ErrorIs(t, err, ErrPatchFormulaCardinality)
}

func TestParsePatchUnknownVariable(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:where { <http://example.org/alice> foaf:age ?age } ;
			solid:inserts { <http://example.org/alice> foaf:age ?other } .
	`)
	_, err := ParsePatch(doc)
	require.ErrorIs(t, err, ErrPatchUnknownVariable)
}

func TestApplyPatchRemovesAndInserts(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:where { <http://example.org/alice> foaf:age ?age } ;
			solid:inserts { <http://example.org/alice> foaf:age "31" } ;
			solid:deletes { <http://example.org/alice> foaf:age ?age } .
	`)
	p, err := ParsePatch(doc)
	require.NoError(t, err)

	target := Graph{
		{Subject: NewIRI("http://example.org/alice"), Predicate: NewIRI("http://xmlns.com/foaf/0.1/age"), Object: NewLiteral("30")},
	}
	result, err := p.Apply(target)
	require.NoError(t, err)
	require.False(t, result.Contains(Triple{Subject: NewIRI("http://example.org/alice"), Predicate: NewIRI("http://xmlns.com/foaf/0.1/age"), Object: NewLiteral("30")}))
	require.True(t, result.Contains(Triple{Subject: NewIRI("http://example.org/alice"), Predicate: NewIRI("http://xmlns.com/foaf/0.1/age"), Object: NewLiteral("31")}))
}

func TestApplyPatchAmbiguousBindingErrors(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:where { <http://example.org/alice> foaf:age ?age } ;
			solid:deletes { <http://example.org/alice> foaf:age ?age } .
	`)
	p, err := ParsePatch(doc)
	require.NoError(t, err)

	target := Graph{
		{Subject: NewIRI("http://example.org/alice"), Predicate: NewIRI("http://xmlns.com/foaf/0.1/age"), Object: NewLiteral("30")},
		{Subject: NewIRI("http://example.org/alice"), Predicate: NewIRI("http://xmlns.com/foaf/0.1/age"), Object: NewLiteral("40")},
	}
	_, err = p.Apply(target)
	require.ErrorIs(t, err, ErrAmbiguousBinding)
}

func TestApplyPatchDeletionNotSubsetErrors(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:deletes { <http://example.org/alice> foaf:age "99" } .
	`)
	p, err := ParsePatch(doc)
	require.NoError(t, err)

	target := Graph{
		{Subject: NewIRI("http://example.org/alice"), Predicate: NewIRI("http://xmlns.com/foaf/0.1/age"), Object: NewLiteral("30")},
	}
	_, err = p.Apply(target)
	require.ErrorIs(t, err, ErrDeletionsNotSubset)
}

func TestApplyPatchInsertOnly(t *testing.T) {
	doc := []byte(patchPrefixHeader + `
		_:p a solid:InsertDeletePatch ;
			solid:inserts { <http://example.org/alice> foaf:age "30" } .
	`)
	p, err := ParsePatch(doc)
	require.NoError(t, err)
	require.Equal(t, []Op{OpAppend}, p.EffectiveOps())

	result, err := p.Apply(Graph{})
	require.NoError(t, err)
	require.Len(t, result, 1)
}
