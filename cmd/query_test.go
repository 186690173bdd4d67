package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/sectionrag/models"
)

func sampleResponse() *models.QueryResponse {
	page := 234
	return &models.QueryResponse{
		QueryID:          "q-1",
		Query:            "glaucoma",
		Mode:             "comprehensive",
		Response:         "narrative\n\n## All Retrieved Excerpts (Verbatim)",
		Sources:          []models.Source{{SectionTitle: "9.4 Acute Angle Closure Glaucoma", PageNumber: &page}},
		DominantSections: []string{"9.4 Acute Angle Closure Glaucoma"},
		Warnings:         []models.Warning{{Section: "9.5 Cataract", Message: "section unavailable"}},
	}
}

func TestWriteOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", sampleResponse()))
	out := buf.String()
	assert.Contains(t, out, "query_id: q-1")
	assert.Contains(t, out, "page_number: 234")
	assert.Contains(t, out, "dominant_sections:")
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", sampleResponse()))
	assert.Contains(t, buf.String(), `"query_id": "q-1"`)
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "text", sampleResponse()))
	assert.Contains(t, buf.String(), "## All Retrieved Excerpts (Verbatim)")
	assert.Contains(t, buf.String(), "warning: 9.5 Cataract: section unavailable")
}

func TestWriteOutput_Section(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.SectionResponse{Section: models.AssembledSection{
		SectionTitle: "9.5 Cataract", Subhead: "Cataract", Pages: []int{240, 241}, ChunkCount: 2, Text: "body",
	}}
	require.NoError(t, writeOutput(&buf, "text", resp))
	assert.Contains(t, buf.String(), "# 9.5 Cataract")
	assert.Contains(t, buf.String(), "pages [240 241], 2 chunks")
}

func TestWriteOutput_Unknown(t *testing.T) {
	assert.Error(t, writeOutput(&bytes.Buffer{}, "xml", sampleResponse()))
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "query", "section", "ingest"})
}
