// Package render prints translation results and tokens for the terminal.
// Widths are measured in terminal cells so CJK text lines up.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/oukeidos/kamekai/internal/language"
	"github.com/oukeidos/kamekai/internal/screen"
	"github.com/oukeidos/kamekai/internal/token"
	"github.com/oukeidos/kamekai/internal/translation"
)

const (
	DefaultWidth = 80
	minWidth     = 20
	labelWidth   = 10
)

// Wrap breaks text into lines no wider than width cells. It prefers the
// line-break opportunities of UAX #14 and falls back to grapheme clusters
// for runs that do not fit on a line of their own.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(para, width)...)
	}
	return lines
}

func wrapParagraph(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	var (
		lines []string
		line  strings.Builder
		cur   int
		state = -1
	)
	flush := func() {
		lines = append(lines, strings.TrimRight(line.String(), " "))
		line.Reset()
		cur = 0
	}

	rest := text
	for rest != "" {
		var segment string
		segment, rest, _, state = uniseg.FirstLineSegmentInString(rest, state)
		w := uniseg.StringWidth(strings.TrimRight(segment, " "))
		if cur > 0 && cur+w > width {
			flush()
		}
		if w > width {
			for _, g := range graphemes(segment) {
				gw := uniseg.StringWidth(g)
				if cur > 0 && cur+gw > width {
					flush()
				}
				line.WriteString(g)
				cur += gw
			}
			continue
		}
		line.WriteString(segment)
		cur += uniseg.StringWidth(segment)
	}
	if line.Len() > 0 {
		flush()
	}
	return lines
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// Pad right-pads s with spaces to width cells.
func Pad(s string, width int) string {
	if w := uniseg.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Cards prints one block per translated sentence, limited to langs (all
// targets when empty). Expanded cards also list grammar notes and examples.
func Cards(w io.Writer, cards []screen.Card, width int, langs ...language.Language) error {
	if len(langs) == 0 {
		langs = language.Targets
	}
	if width < minWidth {
		width = minWidth
	}
	bw := &errWriter{w: w}
	if len(cards) == 0 {
		bw.printf("No sentences to translate.\n")
		return bw.err
	}
	for i, card := range cards {
		if i > 0 {
			bw.printf("\n")
		}
		prefix := fmt.Sprintf("[%d] ", card.Index+1)
		indent := strings.Repeat(" ", uniseg.StringWidth(prefix))
		for j, l := range Wrap(card.Original, width-len(prefix)) {
			if j == 0 {
				bw.printf("%s%s\n", prefix, l)
			} else {
				bw.printf("%s%s\n", indent, l)
			}
		}
		for _, lang := range langs {
			languageBlock(bw, indent, lang.Name, card.Details(lang), width, card.Expanded)
		}
	}
	return bw.err
}

func languageBlock(bw *errWriter, indent, name string, d translation.LanguageDetails, width int, expanded bool) {
	body := width - len(indent) - labelWidth
	label := Pad(name, labelWidth)
	blank := strings.Repeat(" ", labelWidth)

	first := true
	emit := func(text string) {
		for _, l := range Wrap(text, body) {
			if first {
				bw.printf("%s%s%s\n", indent, label, l)
				first = false
			} else {
				bw.printf("%s%s%s\n", indent, blank, l)
			}
		}
	}
	emit(d.Translation)
	if d.Pronunciation != "" {
		emit(d.Pronunciation)
	}
	if !expanded {
		return
	}
	for _, g := range d.Grammar {
		emit("- " + g)
	}
	for _, ex := range d.Examples {
		emit("> " + ex.Phrase)
		if ex.Pronunciation != "" {
			emit("  " + ex.Pronunciation)
		}
		if ex.Translation != "" {
			emit("  " + ex.Translation)
		}
	}
}

// Token prints a credential raw, or decoded as indented header and payload.
func Token(w io.Writer, raw string, decoded bool) error {
	bw := &errWriter{w: w}
	if !decoded {
		bw.printf("%s\n", raw)
		return bw.err
	}
	header, payload := token.Decode(raw).Indented()
	bw.printf("Header:\n%s\n\nPayload:\n%s\n", header, payload)
	return bw.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
