// Package markdown turns the store's policy document into a flat list of
// hierarchical sections.
package markdown

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/bull/techplus-rag/internal/domain"
)

// maxLevel is the deepest heading level markdown supports.
const maxLevel = 6

// PathSeparator joins the heading titles of a section path.
const PathSeparator = " / "

// Section is a heading plus the body text up to the next heading.
type Section struct {
	Index  int
	Title  string
	Level  int
	Path   string
	Anchor string
	Body   string
	// Preamble marks the synthetic level-0 section that holds content found
	// before the first heading.
	Preamble bool
	Parent   *Section
	Children []*Section

	lines []string
}

// Parser parses markdown into sections using goldmark's AST.
type Parser struct {
	md     goldmark.Markdown
	strict bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrictPreamble makes Parse reject documents that have content before
// their first heading instead of collecting it into a preamble section.
func WithStrictPreamble() Option {
	return func(p *Parser) {
		p.strict = true
	}
}

// NewParser creates a parser configured with goldmark auto heading IDs.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns the sections of source in document order. Each section's
// Parent is the nearest preceding section with a strictly smaller level.
func (p *Parser) Parse(source []byte) ([]*Section, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}

	doc := p.md.Parser().Parse(text.NewReader(source))

	b := &sectionBuilder{strict: p.strict}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			b.heading(node.Level, inlineText(node, source), headingAnchor(node))
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			if err := b.line(blockLine(n, source)); err != nil {
				return ast.WalkStop, err
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if err := b.line(codeText(n, source)); err != nil {
				return ast.WalkStop, err
			}
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return b.finish(), nil
}

// Roots returns the sections that have no parent, i.e. the top of the tree.
func Roots(sections []*Section) []*Section {
	var roots []*Section
	for _, s := range sections {
		if s.Parent == nil {
			roots = append(roots, s)
		}
	}
	return roots
}

func validateSource(source []byte) error {
	if len(bytes.TrimSpace(source)) == 0 {
		return fmt.Errorf("%w: empty document", domain.ErrMalformedDocument)
	}
	if !utf8.Valid(source) {
		return fmt.Errorf("%w: invalid UTF-8", domain.ErrMalformedDocument)
	}
	if i := bytes.IndexByte(source, 0); i >= 0 {
		return fmt.Errorf("%w: NUL byte at offset %d", domain.ErrMalformedDocument, i)
	}
	return nil
}

type sectionBuilder struct {
	strict   bool
	sections []*Section
	current  *Section
	titles   [maxLevel + 1]string
}

func (b *sectionBuilder) heading(level int, title, anchor string) {
	level = min(max(level, 1), maxLevel)

	b.titles[level] = title
	for l := level + 1; l <= maxLevel; l++ {
		b.titles[l] = ""
	}

	var parts []string
	for l := 1; l <= level; l++ {
		if b.titles[l] != "" {
			parts = append(parts, b.titles[l])
		}
	}

	s := &Section{
		Index:  len(b.sections),
		Title:  title,
		Level:  level,
		Path:   strings.Join(parts, PathSeparator),
		Anchor: anchor,
	}
	for j := len(b.sections) - 1; j >= 0; j-- {
		prev := b.sections[j]
		if !prev.Preamble && prev.Level < level {
			s.Parent = prev
			prev.Children = append(prev.Children, s)
			break
		}
	}

	b.sections = append(b.sections, s)
	b.current = s
}

func (b *sectionBuilder) line(line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if b.current == nil {
		if b.strict {
			return fmt.Errorf("%w: content before first heading", domain.ErrMalformedDocument)
		}
		b.current = &Section{Preamble: true}
		b.sections = append(b.sections, b.current)
	}
	b.current.lines = append(b.current.lines, line)
	return nil
}

func (b *sectionBuilder) finish() []*Section {
	for _, s := range b.sections {
		s.Body = strings.Join(s.lines, "\n")
		s.lines = nil
	}
	return b.sections
}

// blockLine renders a paragraph-like block. The first block of a list item
// gets a bullet marker; nested items and continuation blocks are indented.
func blockLine(n ast.Node, source []byte) string {
	line := inlineText(n, source)

	item, ok := n.Parent().(*ast.ListItem)
	if !ok {
		return line
	}
	indent := strings.Repeat("  ", listDepth(item)-1)
	if item.FirstChild() == n {
		return indent + "- " + line
	}
	return indent + "  " + line
}

func listDepth(n ast.Node) int {
	depth := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.List); ok {
			depth++
		}
	}
	return max(depth, 1)
}

func headingAnchor(h *ast.Heading) string {
	id, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	if b, ok := id.([]byte); ok {
		return string(b)
	}
	return ""
}

// inlineText flattens the inline children of n into plain text. Soft line
// breaks become spaces; raw HTML is dropped.
func inlineText(n ast.Node, source []byte) string {
	var buf strings.Builder
	writeInline(&buf, n, source)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *strings.Builder, n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(source))
		case *ast.RawHTML:
			continue
		default:
			writeInline(buf, c, source)
		}
	}
}

func codeText(n ast.Node, source []byte) string {
	var buf strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return strings.TrimRight(buf.String(), "\n")
}
