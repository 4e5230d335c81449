package internal

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// TJ offsets below this value (in thousandths of a text unit) are treated as a word gap.
const tjSpaceThreshold = -200

// textWriter collects shown text, keeping at most one space or line break
// between runs.
type textWriter struct {
	sb strings.Builder
}

func (w *textWriter) text(s string) {
	w.sb.WriteString(cleanRunes(s))
}

func (w *textWriter) newline() {
	if w.sb.Len() > 0 && !strings.HasSuffix(w.sb.String(), "\n") {
		w.sb.WriteByte('\n')
	}
}

func (w *textWriter) space() {
	s := w.sb.String()
	if len(s) > 0 && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		w.sb.WriteByte(' ')
	}
}

// pageFonts returns the decoder of every font on the page. Fonts whose
// strings are glyph ids with no way back to characters map to nil.
func pageFonts(p pdf.Page) map[string]pdf.TextEncoding {
	fonts := make(map[string]pdf.TextEncoding)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		if !decodable(f) {
			fonts[name] = nil
			continue
		}
		fonts[name] = f.Encoder()
	}
	return fonts
}

// decodable reports whether text shown with f can be mapped to Unicode.
// Composite fonts need an Identity-H encoding and a ToUnicode map.
func decodable(f pdf.Font) bool {
	if f.V.Key("Subtype").Name() != "Type0" {
		return true
	}
	return f.V.Key("Encoding").Name() == "Identity-H" && f.V.Key("ToUnicode").Kind() == pdf.Stream
}

// pageText returns the text shown on p. Moves to a new line become line
// breaks. When the content stream is malformed the text read so far is
// returned together with the error.
func pageText(p pdf.Page) (text string, err error) {
	if p.V.IsNull() {
		return "", nil
	}
	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return "", nil
	}

	var w textWriter
	defer func() {
		if r := recover(); r != nil {
			text = w.sb.String()
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	fonts := pageFonts(p)
	var enc pdf.TextEncoding
	readable := true

	show := func(v pdf.Value) {
		if !readable {
			return
		}
		raw := v.RawString()
		if enc != nil {
			raw = enc.Decode(raw)
		}
		w.text(raw)
	}

	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		last := pdf.Value{}
		if len(args) > 0 {
			last = args[len(args)-1]
		}

		switch op {
		case "Tf":
			if len(args) < 2 {
				return
			}
			e, ok := fonts[args[0].Name()]
			enc, readable = e, !ok || e != nil
		case "Tj":
			show(last)
		case "'", "\"":
			w.newline()
			show(last)
		case "TJ":
			for i := 0; i < last.Len(); i++ {
				el := last.Index(i)
				switch el.Kind() {
				case pdf.String:
					show(el)
				case pdf.Integer, pdf.Real:
					if el.Float64() < tjSpaceThreshold {
						w.space()
					}
				}
			}
		case "T*", "ET", "Tm":
			w.newline()
		case "Td", "TD":
			// Only a vertical move starts a new line.
			if len(args) >= 2 && args[1].Float64() != 0 {
				w.newline()
			} else {
				w.space()
			}
		}
	})

	return w.sb.String(), nil
}

// NormalizeText collapses runs of blanks, trims lines and drops repeated empty lines.
func NormalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func cleanRunes(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
}
