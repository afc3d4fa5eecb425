package render

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// SyntaxHighlighter colors source lines by the language of their file.
type SyntaxHighlighter struct {
	style  *chroma.Style
	byPath map[string]chroma.Lexer
}

// NewSyntaxHighlighter returns a highlighter using the named chroma style.
// Unknown names fall back to chroma's default.
func NewSyntaxHighlighter(styleName string) *SyntaxHighlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &SyntaxHighlighter{style: style, byPath: make(map[string]chroma.Lexer)}
}

// Highlight returns line styled for the language of filePath. Lines of
// unknown languages are returned unchanged, as is every line when h is nil.
func (h *SyntaxHighlighter) Highlight(line, filePath string) string {
	if h == nil {
		return line
	}
	lexer := h.lexerFor(filePath)
	if lexer == nil {
		return line
	}

	iterator, err := lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, line)
	if err != nil {
		return line
	}

	var result strings.Builder
	for _, token := range iterator.Tokens() {
		result.WriteString(h.styleToken(token))
	}
	return result.String()
}

func (h *SyntaxHighlighter) lexerFor(filePath string) chroma.Lexer {
	if lexer, ok := h.byPath[filePath]; ok {
		return lexer
	}
	lexer := findLexer(filePath)
	h.byPath[filePath] = lexer
	return lexer
}

func findLexer(filePath string) chroma.Lexer {
	if filePath == "" || strings.HasPrefix(filePath, "/") {
		return nil
	}
	if lexer := lexers.Match(filepath.Base(filePath)); lexer != nil {
		return lexer
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	if ext == "" {
		return nil
	}
	return lexers.Get(ext)
}

// styleToken applies lipgloss styling to a chroma token
func (h *SyntaxHighlighter) styleToken(token chroma.Token) string {
	entry := h.style.Get(token.Type)
	if entry == (chroma.StyleEntry{}) {
		return token.Value
	}

	style := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		style = style.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		style = style.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		style = style.Italic(true)
	}
	if entry.Underline == chroma.Yes {
		style = style.Underline(true)
	}
	return style.Render(token.Value)
}
