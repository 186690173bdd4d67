package retrieval

import (
	"fmt"
	"strings"

	"github.com/itish2003/sectionrag/models"
)

// VerbatimHeading introduces the appendix of retrieved excerpts.
const VerbatimHeading = "## All Retrieved Excerpts (Verbatim)"

// Composition is everything Compose needs to build a QueryResponse.
type Composition struct {
	QueryID   string
	Query     string
	Mode      Mode
	Narrative string
	TopK      []models.Chunk
	Dominant  []string
	Sections  []models.AssembledSection
	Swept     []models.Chunk
	Warnings  []models.Warning
}

// Compose renders the narrative followed by a verbatim appendix holding every
// distinct chunk of TopK and Swept exactly once. Chunks are grouped by
// section, assembled sections first, then the other top-K sections by first
// appearance, then chunks with no section; within a group they are ordered
// by page. Sources lists the distinct (section, page) pairs of the titled
// groups of the appendix in the same order.
func Compose(in Composition) models.QueryResponse {
	verbatim, sources := renderVerbatim(in)

	response := verbatim
	if narrative := strings.TrimSpace(in.Narrative); narrative != "" {
		response = narrative + "\n\n---\n\n" + verbatim
	}

	resp := models.QueryResponse{
		QueryID:           in.QueryID,
		Query:             in.Query,
		Mode:              in.Mode.String(),
		Response:          response,
		Narrative:         in.Narrative,
		Sources:           sources,
		DominantSections:  append([]string{}, in.Dominant...),
		AssembledSections: append([]models.AssembledSection{}, in.Sections...),
		Warnings:          in.Warnings,
	}
	return resp
}

type chunkGroup struct {
	title  string
	chunks []models.Chunk
}

func groupForVerbatim(in Composition) []chunkGroup {
	all := dedupByID(append(append([]models.Chunk{}, in.Swept...), in.TopK...))

	index := make(map[string]int)
	var groups []chunkGroup
	addGroup := func(title string) {
		if _, ok := index[title]; ok {
			return
		}
		index[title] = len(groups)
		groups = append(groups, chunkGroup{title: title})
	}
	for _, s := range in.Sections {
		addGroup(s.SectionTitle)
	}
	for _, c := range in.TopK {
		if t := c.Meta.Title(); !isBlank(t) {
			addGroup(t)
		}
	}
	for _, c := range all {
		if t := c.Meta.Title(); !isBlank(t) {
			addGroup(t)
		}
	}

	var unsectioned []models.Chunk
	for _, c := range all {
		t := c.Meta.Title()
		if isBlank(t) {
			unsectioned = append(unsectioned, c)
			continue
		}
		g := &groups[index[t]]
		g.chunks = append(g.chunks, c)
	}
	if len(unsectioned) > 0 {
		groups = append(groups, chunkGroup{chunks: unsectioned})
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g.chunks) == 0 {
			continue
		}
		sortByPage(g.chunks)
		kept = append(kept, g)
	}
	return kept
}

// isBlank reports a missing title. Titles are otherwise compared exactly.
func isBlank(title string) bool {
	return strings.TrimSpace(title) == ""
}

func renderVerbatim(in Composition) (string, []models.Source) {
	var b strings.Builder
	b.WriteString(VerbatimHeading)
	b.WriteString("\n")

	sources := []models.Source{}
	seen := make(map[string]struct{})

	groups := groupForVerbatim(in)
	if len(groups) == 0 {
		b.WriteString("\n_No excerpts were retrieved._\n")
		return b.String(), sources
	}

	for _, g := range groups {
		title := g.title
		if title == "" {
			title = "Other Excerpts"
		}
		fmt.Fprintf(&b, "\n### %s\n", title)
		for _, c := range g.chunks {
			page, hasPage := c.Meta.Page()
			if hasPage {
				fmt.Fprintf(&b, "\n**Page %d** `%s`\n\n", page, c.ID)
			} else {
				fmt.Fprintf(&b, "\n**Page n/a** `%s`\n\n", c.ID)
			}
			b.WriteString(c.Text)
			b.WriteString("\n")

			if g.title == "" {
				continue
			}
			key := fmt.Sprintf("%s\x00%d\x00%t", g.title, page, hasPage)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			src := models.Source{SectionTitle: g.title}
			if hasPage {
				p := page
				src.PageNumber = &p
			}
			sources = append(sources, src)
		}
	}
	return b.String(), sources
}

// GroundingBlocks turns assembled sections, or top-K chunks when there are
// none, into Generator input.
func GroundingBlocks(sections []models.AssembledSection, topK []models.Chunk) []ContextBlock {
	if len(sections) > 0 {
		blocks := make([]ContextBlock, 0, len(sections))
		for _, s := range sections {
			blocks = append(blocks, ContextBlock{Title: s.SectionTitle, Pages: s.Pages, Text: s.Text})
		}
		return blocks
	}
	blocks := make([]ContextBlock, 0, len(topK))
	for _, c := range topK {
		b := ContextBlock{Title: c.Meta.Title(), Text: c.Text}
		if p, ok := c.Meta.Page(); ok {
			b.Pages = []int{p}
		}
		blocks = append(blocks, b)
	}
	return blocks
}
