package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// Page is the text of one physical page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// SectionText is the part of one page that belongs to one section.
type SectionText struct {
	Title string
	Page  int
	Text  string
}

var sectionHeading = regexp.MustCompile(`^\d+(\.\d+)*\s+\S`)

// SetPDFLicense installs the UniPDF metered key. Without one, PDFs are read
// with the pure-Go fallback reader.
func SetPDFLicense(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("no UniPDF license key configured")
	}
	return license.SetMeteredKey(key)
}

// ExtractPages reads a file and returns its text page by page. Text files use
// form feeds as page breaks.
func ExtractPages(path string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return splitFormFeeds(string(content)), nil
	case ".pdf":
		pages, err := extractPagesUniPDF(path)
		if err == nil {
			return pages, nil
		}
		fallback, ferr := extractPagesPlain(path)
		if ferr != nil {
			return nil, fmt.Errorf("unipdf: %v; fallback: %w", err, ferr)
		}
		return fallback, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func splitFormFeeds(content string) []Page {
	raw := strings.Split(content, "\f")
	pages := make([]Page, 0, len(raw))
	for i, text := range raw {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: text})
	}
	return pages
}

func extractPagesUniPDF(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return nil, err
	}
	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, err
		}
		ex, err := extractor.New(page)
		if err != nil {
			return nil, err
		}
		text, err := ex.ExtractText()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, Page{Number: i, Text: text})
		}
	}
	return pages, nil
}

func extractPagesPlain(path string) ([]Page, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, Page{Number: i, Text: text})
		}
	}
	return pages, nil
}

// SplitSections cuts pages at numbered headings such as "9.4 Acute Angle
// Closure Glaucoma". Text before the first heading belongs to
// defaultTitle. A section spanning several pages yields one SectionText per
// page so every chunk keeps its page number.
func SplitSections(pages []Page, defaultTitle string) []SectionText {
	var out []SectionText
	title := defaultTitle
	for _, p := range pages {
		var buf []string
		flush := func() {
			text := strings.TrimSpace(strings.Join(buf, "\n"))
			if text != "" {
				out = append(out, SectionText{Title: title, Page: p.Number, Text: text})
			}
			buf = buf[:0]
		}
		for _, line := range strings.Split(p.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if IsSectionHeading(trimmed) {
				flush()
				title = trimmed
			}
			buf = append(buf, line)
		}
		flush()
	}
	return out
}

// IsSectionHeading reports whether line opens a numbered section. Lines that
// end like sentences or run long are body text that happens to start with a
// number ("12 mg daily.").
func IsSectionHeading(line string) bool {
	if !sectionHeading.MatchString(line) || len(line) > 120 {
		return false
	}
	return !strings.HasSuffix(line, ".") && !strings.HasSuffix(line, ",") && !strings.HasSuffix(line, ";")
}
