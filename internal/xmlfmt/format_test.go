package xmlfmt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormat_CompleteDocumentIsStable(t *testing.T) {
	content := `
<a>
  <b>
    <c>1</c>
    <d>
      <e>2</e>
      <e>3</e>
      <e>4</e>
    </d>
  </b>
</a>`
	got, err := Format(content)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != content {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestFormat_Minified(t *testing.T) {
	in := `<?xml version="1.0"?><root a="1" b='two'><!-- note --><item/><item>x</item><empty></empty></root>`
	want := `<?xml version="1.0"?>
<root a="1" b='two'>
  <item/>
  <item>x</item>
  <empty></empty>
</root>`
	got, err := Format(in)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_SelfClosingSiblingsAndClose(t *testing.T) {
	in := "<list>\n\t<x />\n\t<y/>\n</list>"
	want := "\n<list>\n  <x />\n  <y/>\n</list>"
	got, err := Format(in)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormat_SelfClosingOutsideATagStaysOnItsLine(t *testing.T) {
	for in, want := range map[string]string{
		"<a/>":               "<a/>",
		"<p>hi<br/></p>":     "\n<p>hi<br/></p>",
		"<p>hi<br/><b/></p>": "\n<p>hi<br/><b/></p>",
		"<r><c/></r>":        "\n<r>\n  <c/>\n</r>",
	} {
		got, err := Format(in)
		if err != nil {
			t.Fatalf("Format(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Format(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEngine_StopsOnDeadline(t *testing.T) {
	doc := "<r>" + strings.Repeat("<i>x</i>", 10000) + "</r>"
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	if _, err := (Engine{}).Transform(ctx, doc); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestFormat_TextIsTrimmedAndEscapesKept(t *testing.T) {
	got, err := Format("<p>   a &amp; b   </p>")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if want := "\n<p>a &amp; b</p>"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormat_Empty(t *testing.T) {
	got, err := Format("")
	if err != nil || got != "" {
		t.Fatalf("Format(\"\") = %q, %v", got, err)
	}
}

func TestFormat_Malformed(t *testing.T) {
	for _, in := range []string{
		`test</test>`,
		`<a><b></a>`,
		`<a>`,
		`<a>&nope;</a>`,
	} {
		_, err := Format(in)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Format(%q) err = %v, want ErrMalformed", in, err)
		}
	}
}

func TestEngine_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Engine{}).Transform(ctx, "<a/>"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
