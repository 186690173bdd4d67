package models

// QueryResponse is the composed answer returned to callers.
type QueryResponse struct {
	QueryID           string             `json:"query_id" yaml:"query_id"`
	Query             string             `json:"query" yaml:"query"`
	Mode              string             `json:"mode" yaml:"mode"`
	Response          string             `json:"response" yaml:"response"`
	Narrative         string             `json:"narrative" yaml:"narrative"`
	Sources           []Source           `json:"sources" yaml:"sources"`
	DominantSections  []string           `json:"dominant_sections" yaml:"dominant_sections"`
	AssembledSections []AssembledSection `json:"assembled_sections" yaml:"assembled_sections"`
	Warnings          []Warning          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ErrorResponse is the JSON body used for failed requests.
type ErrorResponse struct {
	Error   string         `json:"error" yaml:"error"`
	Kind    string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Partial *QueryResponse `json:"partial,omitempty" yaml:"partial,omitempty"`
}
