package assemble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/postpress/core"
)

var testPub = core.PublicationRef{Title: "My Pub", Author: "Ann"}

func docs(titles ...string) []*core.NormalizedDocument {
	out := make([]*core.NormalizedDocument, len(titles))
	for i, t := range titles {
		out[i] = &core.NormalizedDocument{PostID: t, Title: t}
	}
	return out
}

func TestAssemble_PerPost(t *testing.T) {
	cfg := core.ExportConfiguration{Granularity: core.GranularityPerPost, MetadataFields: []core.MetadataField{core.FieldURL}}
	comps := Assemble(docs("One", "Two"), []int{1, 3}, testPub, cfg)
	require.Len(t, comps, 2)
	require.Equal(t, "My Pub - One", comps[0].FileStem)
	require.Equal(t, "My Pub - Two", comps[1].FileStem)
	require.Equal(t, []int{3}, comps[1].Ordinals)
	require.Equal(t, "Ann", comps[0].Author)
	require.False(t, comps[0].TitlePage)
	require.True(t, comps[0].Fields.Has(core.FieldURL))
	require.False(t, comps[0].Fields.Has(core.FieldTitle))
}

func TestAssemble_PerPostCollisions(t *testing.T) {
	cfg := core.ExportConfiguration{Granularity: core.GranularityPerPost}
	comps := Assemble(docs("Same", "same", "Same?", "Same"), []int{1, 2, 3, 4}, testPub, cfg)
	stems := []string{comps[0].FileStem, comps[1].FileStem, comps[2].FileStem, comps[3].FileStem}
	require.Equal(t, []string{"My Pub - Same", "My Pub - same (2)", "My Pub - Same_", "My Pub - Same (4)"}, stems)
}

func TestAssemble_CombinedIsSingleCompilation(t *testing.T) {
	cfg := core.ExportConfiguration{Granularity: core.GranularityCombined}
	comps := Assemble(docs("A", "B", "C"), nil, testPub, cfg)
	require.Len(t, comps, 1)
	c := comps[0]
	require.True(t, c.TitlePage)
	require.True(t, c.Combined)
	require.Equal(t, "My Pub - combined", c.FileStem)
	require.Equal(t, "My Pub", c.Title)
	require.Len(t, c.Documents, 3)
	require.Equal(t, []int{1, 2, 3}, c.Ordinals)
}

func TestAssemble_Empty(t *testing.T) {
	require.Empty(t, Assemble(nil, nil, testPub, core.ExportConfiguration{Granularity: core.GranularityCombined}))
}
