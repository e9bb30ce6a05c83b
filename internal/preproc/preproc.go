// Package preproc expands inline `{|command argument}` blocks in content
// bodies using a registry of named handlers.
//
// Scanning is a single left-to-right pass. A marker without a closing brace,
// or whose closing brace sits after a newline, is emitted literally.
// Unregistered commands expand to nothing. Replacement text is never
// rescanned.
package preproc

import (
	"io"
	"log/slog"
	"maps"
	"strings"

	"git.home.luguber.info/inful/seriesgen/internal/logfields"
)

const (
	openMarker = "{|"
	closeBrace = '}'
)

// Handler resolves one command. Implementations must return "" for
// arguments they cannot resolve rather than failing.
type Handler interface {
	Handle(command, argument string) string
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(command, argument string) string

// Handle calls f(command, argument).
func (f HandlerFunc) Handle(command, argument string) string { return f(command, argument) }

// Registry maps command names to handlers.
type Registry map[string]Handler

// Preprocessor expands markup blocks. It is safe for concurrent use as long
// as its handlers are.
type Preprocessor struct {
	handlers Registry
}

// New returns a Preprocessor over a copy of reg.
func New(reg Registry) *Preprocessor {
	return &Preprocessor{handlers: maps.Clone(reg)}
}

// Commands lists the registered command names.
func (p *Preprocessor) Commands() []string {
	names := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		names = append(names, name)
	}
	return names
}

// Render expands every block in text.
func (p *Preprocessor) Render(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	_ = p.RenderTo(&b, text)
	return b.String()
}

// RenderTo streams the expansion of text to w.
func (p *Preprocessor) RenderTo(w io.StringWriter, text string) error {
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], openMarker)
		if i < 0 {
			break
		}
		start := pos + i
		bodyStart := start + len(openMarker)
		rest := text[bodyStart:]

		end := strings.IndexByte(rest, closeBrace)
		if end < 0 {
			// No brace anywhere ahead, so no later marker can close either.
			break
		}
		if strings.IndexByte(rest[:end], '\n') >= 0 {
			if _, err := w.WriteString(text[pos:bodyStart]); err != nil {
				return err
			}
			pos = bodyStart
			continue
		}

		if _, err := w.WriteString(text[pos:start]); err != nil {
			return err
		}
		command, argument, _ := strings.Cut(rest[:end], " ")
		if _, err := w.WriteString(p.expand(command, argument)); err != nil {
			return err
		}
		pos = bodyStart + end + 1
	}
	_, err := w.WriteString(text[pos:])
	return err
}

func (p *Preprocessor) expand(command, argument string) string {
	h, ok := p.handlers[command]
	if !ok {
		slog.Debug("Unregistered markup command", logfields.Command(command))
		return ""
	}
	return h.Handle(command, argument)
}
