package loader

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"resumechat/loader/internal"
)

// Text is the plain-text form of an artifact.
type Text struct {
	Content string
	Pages   int
}

// Converter turns artifact bytes into plain text.
type Converter interface {
	Convert(ctx context.Context, name string, data []byte) (Text, error)
}

// PDFConverter extracts text locally with pdfcpu.
type PDFConverter struct{}

func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

func (c *PDFConverter) Convert(_ context.Context, _ string, data []byte) (Text, error) {
	text, pages, err := internal.ExtractPDFText(data)
	if err != nil {
		return Text{}, err
	}
	return Text{Content: text, Pages: pages}, nil
}

// plainText passes text artifacts (.txt, .md) through untouched.
type plainText struct{}

func (plainText) Convert(_ context.Context, _ string, data []byte) (Text, error) {
	if !utf8.Valid(data) {
		return Text{}, errInvalidUTF8
	}
	return Text{Content: internal.NormalizeText(string(data)), Pages: 1}, nil
}

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

func isTextArtifact(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}
