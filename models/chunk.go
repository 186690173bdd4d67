package models

import "strings"

// ChunkMeta is the typed metadata stored alongside every corpus chunk.
// Absent values stay nil; nothing is defaulted.
type ChunkMeta struct {
	SectionTitle *string `json:"section_title,omitempty" yaml:"section_title,omitempty"`
	PageNumber   *int    `json:"page_number,omitempty" yaml:"page_number,omitempty"`
	SourceFile   string  `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	ChunkNum     *int    `json:"chunk_num,omitempty" yaml:"chunk_num,omitempty"`
}

// Section returns the section title and whether the meta is usable for
// section grouping. A meta without a title or a page number is "no section".
func (m ChunkMeta) Section() (string, bool) {
	if m.SectionTitle == nil || m.PageNumber == nil {
		return "", false
	}
	if strings.TrimSpace(*m.SectionTitle) == "" {
		return "", false
	}
	return *m.SectionTitle, true
}

// Title returns the section title or "" when absent.
func (m ChunkMeta) Title() string {
	if m.SectionTitle == nil {
		return ""
	}
	return *m.SectionTitle
}

// Page returns the page number and whether one is present.
func (m ChunkMeta) Page() (int, bool) {
	if m.PageNumber == nil {
		return 0, false
	}
	return *m.PageNumber, true
}

// Chunk is the atomic retrievable unit of the corpus.
// Score is the search distance (lower is closer), set only on search results.
type Chunk struct {
	ID    string    `json:"id" yaml:"id"`
	Text  string    `json:"text" yaml:"text"`
	Meta  ChunkMeta `json:"metadata" yaml:"metadata"`
	Score *float64  `json:"score,omitempty" yaml:"score,omitempty"`
}

// NewMeta builds a fully populated ChunkMeta.
func NewMeta(section string, page int) ChunkMeta {
	return ChunkMeta{SectionTitle: &section, PageNumber: &page}
}
