// Package pdftest builds small uncompressed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Font selects how the page font /F1 is declared.
type Font int

const (
	// Helvetica is a simple Type1 font; strings hold character codes.
	Helvetica Font = iota
	// Subset is an embedded-style Type0 font with Identity-H encoding and a
	// ToUnicode map, the way word processors export text. Strings hold glyph
	// ids, see Glyphs.
	Subset
	// SubsetNoUnicode is Subset without the ToUnicode map.
	SubsetNoUnicode
)

// glyphOffset maps printable ASCII to glyph ids as in the standard
// TrueType glyph order, where space is glyph 3.
const glyphOffset = 29

const toUnicode = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0003> <005F> <0020>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

// Build returns a PDF with one page per content stream, using Helvetica as /F1.
func Build(pages ...string) []byte {
	return BuildWithFont(Helvetica, pages...)
}

// BuildWithFont returns a PDF with one page per content stream and /F1
// declared as font.
func BuildWithFont(font Font, pages ...string) []byte {
	var buf bytes.Buffer
	offsets := []int{}

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	stream := func(dict, content string) string {
		return fmt.Sprintf("<< %s/Length %d >>\nstream\n%s\nendstream", dict, len(content), content)
	}

	buf.WriteString("%PDF-1.4\n")

	// Objects after the pages hold the parts of a Type0 font.
	extra := 4 + 2*len(pages)

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))

	switch font {
	case Subset:
		obj(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+Calibri /Encoding /Identity-H /DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>", extra, extra+2))
	case SubsetNoUnicode:
		obj(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+Calibri /Encoding /Identity-H /DescendantFonts [%d 0 R] >>", extra))
	default:
		obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	}

	for i, content := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(stream("", content))
	}

	if font == Subset || font == SubsetNoUnicode {
		obj(fmt.Sprintf("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ABCDEF+Calibri /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %d 0 R /CIDToGIDMap /Identity /DW 500 >>", extra+1))
		obj("<< /Type /FontDescriptor /FontName /ABCDEF+Calibri /Flags 32 /FontBBox [-500 -300 1200 1000] /ItalicAngle 0 /Ascent 750 /Descent -250 /CapHeight 650 /StemV 80 >>")
		obj(stream("", toUnicode))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// Lines renders each line of a Helvetica page, moving down between lines.
func Lines(lines ...string) string {
	var buf bytes.Buffer
	buf.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("0 -14 Td\n")
		}
		fmt.Fprintf(&buf, "(%s) Tj\n", line)
	}
	buf.WriteString("ET")
	return buf.String()
}

// GlyphLines is Lines for Subset fonts.
func GlyphLines(lines ...string) string {
	var buf bytes.Buffer
	buf.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("0 -14 Td\n")
		}
		fmt.Fprintf(&buf, "%s Tj\n", Glyphs(line))
	}
	buf.WriteString("ET")
	return buf.String()
}

// Glyphs encodes printable ASCII text as a hex string of two-byte glyph ids.
func Glyphs(s string) string {
	var sb strings.Builder
	sb.WriteByte('<')
	for _, r := range s {
		if r < ' ' || r > '|' {
			r = '?'
		}
		fmt.Fprintf(&sb, "%04X", int(r)-glyphOffset)
	}
	sb.WriteByte('>')
	return sb.String()
}
