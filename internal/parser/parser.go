package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"exam-rag/internal/models"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var supported = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".pdf":      true,
	".docx":     true,
	".pptx":     true,
	".xlsx":     true,
}

// IsSupported reports whether the file extension has a loader.
func IsSupported(filePath string) bool {
	return supported[strings.ToLower(filepath.Ext(filePath))]
}

// TitleFromPath is the file base name without its extension.
func TitleFromPath(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadDocument reads a source file into one document tagged with title, era and source.
func LoadDocument(ctx context.Context, filePath, era string) (schema.Document, error) {
	content, err := ParseToText(ctx, filePath)
	if err != nil {
		return schema.Document{}, err
	}
	title := TitleFromPath(filePath)
	return schema.Document{
		PageContent: content,
		Metadata: map[string]any{
			models.MetaTitle:  title,
			models.MetaEra:    era,
			models.MetaSource: title,
		},
	}, nil
}

// ParseToText extracts the plain text of a supported file.
func ParseToText(ctx context.Context, filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".md", ".markdown":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return MarkdownToText(data), nil
	case ".txt":
		return parseText(ctx, filePath)
	case ".pdf":
		return parsePDF(ctx, filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pptx":
		return parsePPTX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseText(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return "", err
	}
	var text strings.Builder
	for _, d := range docs {
		text.WriteString(d.PageContent)
	}
	return strings.TrimSpace(text.String()), nil
}

func parsePDF(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, strings.TrimSpace(pageText))
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	// GetContent returns document.xml, so the runs still need extracting
	return extractXMLText(strings.NewReader(r.Editable().GetContent()))
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var slides []string
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		slideText, err := extractXMLText(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if slideText != "" {
			slides = append(slides, slideText)
		}
	}
	return strings.Join(slides, "\n\n"), nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			line := strings.TrimSpace(strings.Join(cells, "\t"))
			if line != "" {
				text.WriteString(line + "\n")
			}
		}
		text.WriteString("\n")
	}
	return strings.TrimSpace(text.String()), nil
}

// extractXMLText collects the text runs (<w:t>, <a:t>) of an OOXML part,
// one line per paragraph.
func extractXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		text   strings.Builder
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					text.WriteString(s + "\n")
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(line.String()); s != "" {
		text.WriteString(s)
	}
	return strings.TrimSpace(text.String()), nil
}
