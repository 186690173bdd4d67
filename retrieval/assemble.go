package retrieval

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/itish2003/sectionrag/models"
)

const (
	chunkSeparator  = "\n\n"
	subheadMaxRunes = 80
)

var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)

// Assemble merges the chunks of one section into a single reading block.
// Chunks are de-duplicated by id (first occurrence wins) and stable-sorted
// by page; chunks without a page go last. Assemble never fails: an empty
// input yields an empty block.
func Assemble(title string, chunks []models.Chunk) models.AssembledSection {
	ordered := dedupByID(chunks)
	sortByPage(ordered)

	sec := models.AssembledSection{
		SectionTitle: title,
		Pages:        []int{},
		ChunkIDs:     make([]string, 0, len(ordered)),
		ChunkCount:   len(ordered),
	}
	texts := make([]string, 0, len(ordered))
	for _, c := range ordered {
		texts = append(texts, c.Text)
		sec.ChunkIDs = append(sec.ChunkIDs, c.ID)
		if p, ok := c.Meta.Page(); ok {
			if n := len(sec.Pages); n == 0 || sec.Pages[n-1] != p {
				sec.Pages = append(sec.Pages, p)
			}
		}
	}
	sec.Text = strings.Join(texts, chunkSeparator)
	if len(sec.Pages) > 0 {
		first := sec.Pages[0]
		sec.Page = &first
	}
	if len(ordered) > 0 {
		sec.Subhead = deriveSubhead(ordered[0].Text)
	}
	return sec
}

// dedupByID keeps the first chunk seen for every id. Chunks with an empty id
// are never merged.
func dedupByID(chunks []models.Chunk) []models.Chunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ID != "" {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}

func sortByPage(chunks []models.Chunk) {
	slices.SortStableFunc(chunks, func(a, b models.Chunk) int {
		pa, oka := a.Meta.Page()
		pb, okb := b.Meta.Page()
		switch {
		case oka && okb:
			return cmp.Compare(pa, pb)
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
}

func deriveSubhead(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if looksLikeHeading(line) {
			return line
		}
		break
	}
	return summarize(text)
}

func looksLikeHeading(line string) bool {
	if utf8.RuneCountInString(line) > subheadMaxRunes {
		return false
	}
	if strings.ContainsAny(line[len(line)-1:], ".,;!?") {
		return false
	}
	if numberedHeading.MatchString(line) {
		return true
	}
	return isUpperCase(line) || isTitleCase(line)
}

func isUpperCase(s string) bool {
	letters := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters
}

// isTitleCase: the first word and every word longer than three letters start
// with an upper-case letter.
func isTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for i, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsLetter(r) {
			continue
		}
		if (i == 0 || utf8.RuneCountInString(w) > 3) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func summarize(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(flat) <= subheadMaxRunes {
		return flat
	}
	runes := []rune(flat)
	return strings.TrimSpace(string(runes[:subheadMaxRunes])) + "..."
}
