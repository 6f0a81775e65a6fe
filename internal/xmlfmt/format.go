// Package xmlfmt re-indents XML documents.
//
// Tags are reproduced byte-for-byte from the input; only the whitespace
// between them changes. Comments are dropped and text is trimmed.
package xmlfmt

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const indentUnit = "  "

// ErrMalformed wraps every tokenizer failure.
var ErrMalformed = errors.New("xmlfmt: malformed document")

type state int

const (
	stInit   state = iota // before the first element
	stStart               // just wrote a start tag
	stText                // just wrote text following a start tag
	stEnd                 // just wrote an end tag
	stInline              // just wrote a self-closing element
	stOther               // anything else written through
)

// Format returns input re-indented two spaces per nesting level.
func Format(input string) (string, error) {
	return format(context.Background(), input)
}

// checkEvery is how many tokens pass between context checks.
const checkEvery = 256

func format(ctx context.Context, input string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(input))
	dec.Strict = true
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		out     strings.Builder
		st      = stInit
		depth   int
		skipEnd bool
	)
	out.Grow(len(input) + len(input)/4)
	newline := func() {
		out.WriteByte('\n')
		out.WriteString(strings.Repeat(indentUnit, depth))
	}

	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		begin := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		raw := input[begin:dec.InputOffset()]

		switch t := tok.(type) {
		case xml.Comment:
			continue

		case xml.ProcInst:
			out.WriteString(raw)
			if t.Target != "xml" || st != stInit {
				st = stOther
			}

		case xml.StartElement:
			if strings.HasSuffix(raw, "/>") {
				// the decoder follows up with a synthetic end element
				skipEnd = true
				// a self-closing element only starts a line after a tag
				switch st {
				case stStart, stEnd, stInline:
					newline()
					st = stInline
				default:
					st = stOther
				}
				out.WriteString(raw)
				continue
			}
			newline()
			out.WriteString(raw)
			depth++
			st = stStart

		case xml.CharData:
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}
			out.WriteString(text)
			if st == stStart {
				st = stText
			} else {
				st = stOther
			}

		case xml.EndElement:
			if skipEnd {
				skipEnd = false
				continue
			}
			depth--
			switch st {
			case stEnd, stInline:
				newline()
				st = stEnd
			case stStart, stText:
				st = stEnd
			default:
				st = stOther
			}
			out.WriteString(raw)

		default:
			out.WriteString(raw)
			st = stOther
		}
	}
	return out.String(), nil
}

// Engine exposes Format as a context-aware transform. The context is
// checked while tokenizing, so a per-call timeout stops long documents.
type Engine struct{}

func (Engine) Transform(ctx context.Context, text string) (string, error) {
	return format(ctx, text)
}
