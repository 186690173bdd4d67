package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/itish2003/sectionrag/retrieval"
)

// GeminiGenerator writes narrative answers with a Gemini model.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	log         *slog.Logger
}

func NewGeminiGenerator(client *genai.Client, model string, temperature float32, log *slog.Logger) *GeminiGenerator {
	if log == nil {
		log = slog.Default()
	}
	return &GeminiGenerator{client: client, model: model, temperature: temperature, log: log.With("component", "gemini")}
}

// Generate answers query grounded on blocks. It carries the caller's context
// and sets no timeout of its own.
func (g *GeminiGenerator) Generate(ctx context.Context, query string, blocks []retrieval.ContextBlock) (string, error) {
	prompt := BuildPrompt(query, blocks)
	g.log.Debug("sending prompt", "model", g.model, "blocks", len(blocks), "chars", len(prompt))

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: GetSystemPrompt(),
		Temperature:       genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	if responseText.Len() == 0 {
		return "", errors.New("gemini returned an empty answer")
	}
	return responseText.String(), nil
}

// Ping checks that the configured model is reachable with the API key.
func (g *GeminiGenerator) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini model %q: %w", g.model, err)
	}
	return nil
}

// BuildPrompt lays out the question followed by numbered excerpts.
func BuildPrompt(query string, blocks []retrieval.ContextBlock) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\n\nExcerpts:\n")
	if len(blocks) == 0 {
		b.WriteString("\n(no excerpts were retrieved)\n")
	}
	for i, blk := range blocks {
		title := blk.Title
		if title == "" {
			title = "Untitled excerpt"
		}
		fmt.Fprintf(&b, "\n[%d] %s", i+1, title)
		if pages := formatPages(blk.Pages); pages != "" {
			fmt.Fprintf(&b, " (%s)", pages)
		}
		b.WriteString("\n")
		b.WriteString(blk.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func formatPages(pages []int) string {
	switch len(pages) {
	case 0:
		return ""
	case 1:
		return "p. " + strconv.Itoa(pages[0])
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return "pp. " + strings.Join(parts, ", ")
}
