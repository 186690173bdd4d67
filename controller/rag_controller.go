package controller

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"github.com/itish2003/sectionrag/models"
	"github.com/itish2003/sectionrag/retrieval"
	"github.com/itish2003/sectionrag/services"
)

// QueryService is the part of the retrieval pipeline the HTTP layer needs.
type QueryService interface {
	Query(ctx context.Context, query, mode string, n int) (*models.QueryResponse, error)
	Section(ctx context.Context, title string) (*models.SectionResponse, error)
	Ping(ctx context.Context) error
}

// TitleSearcher finds exact section titles from free text.
type TitleSearcher interface {
	Search(text string, limit int) ([]services.TitleMatch, error)
}

// RAGController handles the HTTP requests of the query API.
type RAGController struct {
	pipeline QueryService
	titles   TitleSearcher
	log      *slog.Logger
}

// NewRAGController wires the controller; titles may be nil, in which case
// section search answers 404.
func NewRAGController(pipeline QueryService, titles TitleSearcher, log *slog.Logger) *RAGController {
	if log == nil {
		log = slog.Default()
	}
	return &RAGController{pipeline: pipeline, titles: titles, log: log.With("component", "http")}
}

// QueryRAG is the handler for POST /api/v1/query.
func (c *RAGController) QueryRAG(ctx *gin.Context) {
	var req models.QueryTextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error(), Kind: string(retrieval.KindInvalidRequest)})
		return
	}

	resp, err := c.pipeline.Query(ctx.Request.Context(), req.Query, req.Mode, req.NResults)
	if err != nil {
		status := statusFor(err)
		c.log.Warn("query failed", "status", status, "error", err)
		ctx.JSON(status, models.ErrorResponse{Error: err.Error(), Kind: string(retrieval.KindOf(err)), Partial: resp})
		return
	}

	if ctx.Query("format") == "html" {
		c.renderHTML(ctx, resp)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetSection is the handler for GET /api/v1/sections/:title.
func (c *RAGController) GetSection(ctx *gin.Context) {
	title := ctx.Param("title")
	resp, err := c.pipeline.Section(ctx.Request.Context(), title)
	if err != nil {
		ctx.JSON(statusFor(err), models.ErrorResponse{Error: err.Error(), Kind: string(retrieval.KindOf(err))})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SearchSections is the handler for GET /api/v1/sections?q=...&limit=...
func (c *RAGController) SearchSections(ctx *gin.Context) {
	if c.titles == nil {
		ctx.JSON(http.StatusNotFound, models.ErrorResponse{Error: "section search is not enabled"})
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	hits, err := c.titles.Search(ctx.Query("q"), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "section search failed: " + err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": len(hits), "sections": hits})
}

// Health pings the vector store and the embedder. The generator is checked
// once at startup only.
func (c *RAGController) Health(ctx *gin.Context) {
	if err := c.pipeline.Ping(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "sectionrag"})
}

var htmlPage = template.Must(template.New("answer").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Query}}</title></head>
<body>
<h1>{{.Query}}</h1>
{{.Body}}
</body></html>
`))

func (c *RAGController) renderHTML(ctx *gin.Context, resp *models.QueryResponse) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(resp.Response), &body); err != nil {
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to render markdown: " + err.Error()})
		return
	}
	var page bytes.Buffer
	err := htmlPage.Execute(&page, struct {
		Query string
		Body  template.HTML
	}{Query: resp.Query, Body: template.HTML(body.String())})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to render page: " + err.Error()})
		return
	}
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", page.Bytes())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, retrieval.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, retrieval.ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, retrieval.ErrRetrievalUnavailable), errors.Is(err, retrieval.ErrUnreachable):
		return http.StatusServiceUnavailable
	case errors.Is(err, retrieval.ErrSynthesisFailed), errors.Is(err, retrieval.ErrSectionUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
