package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/sectionrag/models"
)

func TestAssemble_OrdersByPageAndDedups(t *testing.T) {
	in := []models.Chunk{
		chunk("c3", "S", 3, "third"),
		chunk("c1", "S", 1, "first"),
		chunk("c2a", "S", 2, "second a"),
		chunk("c1", "S", 1, "first again"),
		chunk("c2b", "S", 2, "second b"),
	}
	sec := Assemble("S", in)

	assert.Equal(t, "S", sec.SectionTitle)
	assert.Equal(t, 4, sec.ChunkCount)
	assert.Equal(t, []string{"c1", "c2a", "c2b", "c3"}, sec.ChunkIDs)
	assert.Equal(t, []int{1, 2, 3}, sec.Pages)
	require.NotNil(t, sec.Page)
	assert.Equal(t, 1, *sec.Page)
	assert.Equal(t, "first\n\nsecond a\n\nsecond b\n\nthird", sec.Text)
}

func TestAssemble_PagelessChunksLast(t *testing.T) {
	title := "S"
	in := []models.Chunk{
		{ID: "x", Text: "no page", Meta: models.ChunkMeta{SectionTitle: &title}},
		chunk("a", "S", 7, "page seven"),
	}
	sec := Assemble("S", in)
	assert.Equal(t, []string{"a", "x"}, sec.ChunkIDs)
	assert.Equal(t, []int{7}, sec.Pages)
}

func TestAssemble_Empty(t *testing.T) {
	sec := Assemble("S", nil)
	assert.Zero(t, sec.ChunkCount)
	assert.Empty(t, sec.Text)
	assert.Empty(t, sec.Pages)
	assert.Nil(t, sec.Page)
}

func TestAssemble_GlaucomaSweep(t *testing.T) {
	_, section := glaucomaCorpus()
	sec := Assemble("9.4 Acute Angle Closure Glaucoma", section)

	assert.Equal(t, []int{234, 235, 236, 237, 238, 239, 240, 241}, sec.Pages)
	assert.Equal(t, len(section), sec.ChunkCount)
	parts := strings.Split(sec.Text, chunkSeparator)
	require.Len(t, parts, len(section))
	seen := map[string]int{}
	for _, p := range parts {
		seen[p]++
	}
	for _, c := range section {
		assert.Equal(t, 1, seen[c.Text], c.ID)
	}
}

func TestDeriveSubhead(t *testing.T) {
	assert.Equal(t, "Acute Angle Closure Glaucoma", deriveSubhead("Acute Angle Closure Glaucoma\nPatients present with pain."))
	assert.Equal(t, "9.4.1 Management", deriveSubhead("\n9.4.1 Management\nGive acetazolamide."))
	assert.Equal(t, "EMERGENCY TREATMENT", deriveSubhead("EMERGENCY TREATMENT\nbody"))

	long := strings.Repeat("patients present with a red painful eye ", 5)
	got := deriveSubhead(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), subheadMaxRunes+3)

	assert.Equal(t, "a short sentence.", deriveSubhead("a short sentence."))
}
