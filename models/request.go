package models

type QueryTextRequest struct {
	Query    string `json:"query" binding:"required"`
	Mode     string `json:"mode,omitempty"`
	NResults int    `json:"n_results,omitempty"`
}
