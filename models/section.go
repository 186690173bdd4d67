package models

// AssembledSection is one dominant section merged into a single reading block.
type AssembledSection struct {
	SectionTitle string   `json:"section_title" yaml:"section_title"`
	Subhead      string   `json:"subhead" yaml:"subhead"`
	Page         *int     `json:"page,omitempty" yaml:"page,omitempty"` // first page covered
	Pages        []int    `json:"pages" yaml:"pages"`
	Text         string   `json:"text" yaml:"text"`
	ChunkCount   int      `json:"chunk_count" yaml:"chunk_count"`
	ChunkIDs     []string `json:"chunk_ids" yaml:"chunk_ids"`
}

// Source is a single (section, page) citation.
type Source struct {
	SectionTitle string `json:"section_title" yaml:"section_title"`
	PageNumber   *int   `json:"page_number,omitempty" yaml:"page_number,omitempty"`
}

// Warning records a non-fatal problem encountered while answering a query.
type Warning struct {
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// SectionResponse is the payload of the GET /sections/:title endpoint.
type SectionResponse struct {
	Section AssembledSection `json:"section" yaml:"section"`
	Chunks  []Chunk          `json:"chunks" yaml:"chunks"`
}
