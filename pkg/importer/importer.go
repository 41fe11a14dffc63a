// Package importer turns markdown pages into document nodes.
package importer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/grovetools/treenote/pkg/frontmatter"
	"github.com/grovetools/treenote/pkg/models"
)

// Page is one imported markdown file.
type Page struct {
	Props   models.NodeProperties
	Content *models.Content
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// ReadFile parses the markdown file at path.
func ReadFile(fsys afero.Fs, path string) (*Page, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse converts markdown source to a rich text node. Frontmatter sets the
// name, tags and timestamps; without a title the first level one heading or
// the file name is used. A frontmatter syntax other than rich text keeps the
// body verbatim as plain text.
func Parse(source []byte, filename string) (*Page, error) {
	fm, body, err := frontmatter.Parse(string(source))
	if err != nil {
		return nil, err
	}
	page := &Page{Props: models.NodeProperties{Syntax: models.SyntaxRichText}}
	if fm != nil {
		page.Props.Name = fm.Title
		page.Props.Tags = strings.Join(fm.Tags, " ")
		page.Props.ReadOnly = fm.ReadOnly
		if fm.Syntax != "" {
			page.Props.Syntax = fm.Syntax
		}
		if t, err := frontmatter.ParseTimestamp(fm.Created); err == nil {
			page.Props.CreatedAt = t
		}
		if t, err := frontmatter.ParseTimestamp(fm.Modified); err == nil {
			page.Props.ModifiedAt = t
		}
	}

	if page.Props.Syntax != models.SyntaxRichText {
		page.Content = models.PlainContent(strings.TrimPrefix(body, "\n"))
	} else {
		src := []byte(body)
		doc := md.Parser().Parse(text.NewReader(src))
		c := &converter{src: src, content: &models.Content{}}
		c.blocks(doc, 0)
		c.trimTrailingNewlines()
		page.Content = c.content
		if page.Props.Name == "" {
			page.Props.Name = c.title
		}
	}
	if page.Props.Name == "" {
		base := filepath.Base(filename)
		page.Props.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return page, nil
}

type converter struct {
	src     []byte
	content *models.Content
	// offset counts characters written so far, one per anchored object
	offset int
	title  string
}

func (c *converter) write(s string, attrs map[string]string) {
	if s == "" {
		return
	}
	c.offset += utf8.RuneCountInString(s)
	runs := c.content.Runs
	if n := len(runs); n > 0 && sameAttrs(runs[n-1].Attrs, attrs) {
		runs[n-1].Text += s
		return
	}
	var copied map[string]string
	if len(attrs) > 0 {
		copied = make(map[string]string, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
	}
	c.content.Runs = append(runs, models.Run{Text: s, Attrs: copied})
}

func sameAttrs(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (c *converter) anchor(o models.AnchoredObject, p *models.Placement) {
	p.Offset = c.offset
	p.Justification = models.JustifyLeft
	c.content.Objects = append(c.content.Objects, o)
	c.offset++
}

func (c *converter) newline() { c.write("\n", nil) }

func (c *converter) trimTrailingNewlines() {
	runs := c.content.Runs
	for len(runs) > 0 {
		last := &runs[len(runs)-1]
		trimmed := strings.TrimRight(last.Text, "\n")
		c.offset -= len(last.Text) - len(trimmed)
		if trimmed != "" {
			last.Text = trimmed
			break
		}
		runs = runs[:len(runs)-1]
	}
	c.content.Runs = runs
}

func (c *converter) blocks(parent ast.Node, depth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		c.block(n, depth)
	}
}

func (c *converter) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		attrs := map[string]string{"scale": "h" + strconv.Itoa(min(node.Level, 6)), "weight": "heavy"}
		if node.Level == 1 && c.title == "" {
			c.title = plainText(node, c.src)
		}
		c.inlines(node, attrs)
		c.newline()
	case *ast.Paragraph, *ast.TextBlock:
		c.inlines(node, nil)
		c.newline()
	case *ast.FencedCodeBlock:
		syntax := string(node.Language(c.src))
		if syntax == "" {
			syntax = models.SyntaxPlainText
		}
		c.codeBox(node, syntax)
	case *ast.CodeBlock:
		c.codeBox(node, models.SyntaxPlainText)
	case *ast.List:
		c.list(node, depth)
	case *ast.Blockquote:
		c.blocks(node, depth)
	case *ast.ThematicBreak:
		c.newline()
	case *ast.HTMLBlock:
		c.write(lines(node, c.src), nil)
	case *east.Table:
		c.table(node)
	default:
		c.blocks(n, depth)
	}
}

func (c *converter) list(l *ast.List, depth int) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "• "
		if l.IsOrdered() {
			bullet = strconv.Itoa(num) + ". "
			num++
		}
		c.write(strings.Repeat("  ", depth)+bullet, nil)
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if sub, ok := child.(*ast.List); ok {
				c.list(sub, depth+1)
				continue
			}
			c.block(child, depth+1)
		}
	}
}

func (c *converter) codeBox(n ast.Node, syntax string) {
	box := &models.CodeBox{
		Text:              strings.TrimSuffix(lines(n, c.src), "\n"),
		Syntax:            syntax,
		Width:             500,
		Height:            100,
		WidthInPixels:     true,
		HighlightBrackets: true,
	}
	c.anchor(box, &box.Placement)
	c.newline()
}

func (c *converter) table(t *east.Table) {
	var rows [][]string
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row = append(row, plainText(cell, c.src))
		}
		rows = append(rows, row)
	}
	tbl := &models.Table{Rows: rows, ColMin: 40, ColMax: 400}
	c.anchor(tbl, &tbl.Placement)
	c.newline()
}

func lines(n ast.Node, src []byte) string {
	var sb strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

func with(attrs map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out[key] = value
	return out
}

func (c *converter) inlines(parent ast.Node, attrs map[string]string) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			c.write(string(node.Segment.Value(c.src)), attrs)
			if node.HardLineBreak() || node.SoftLineBreak() {
				c.write("\n", attrs)
			}
		case *ast.String:
			c.write(string(node.Value), attrs)
		case *ast.Emphasis:
			if node.Level >= 2 {
				c.inlines(node, with(attrs, "weight", "heavy"))
			} else {
				c.inlines(node, with(attrs, "style", "italic"))
			}
		case *ast.CodeSpan:
			c.inlines(node, with(attrs, "family", "monospace"))
		case *ast.Link:
			c.inlines(node, with(attrs, "link", "webs "+string(node.Destination)))
		case *ast.AutoLink:
			url := string(node.URL(c.src))
			c.write(string(node.Label(c.src)), with(attrs, "link", "webs "+url))
		case *ast.Image:
			c.inlines(node, with(attrs, "link", "webs "+string(node.Destination)))
		case *east.Strikethrough:
			c.inlines(node, with(attrs, "strikethrough", "true"))
		case *ast.RawHTML:
			// dropped
		default:
			c.inlines(node, attrs)
		}
	}
}

// plainText concatenates the text below n without formatting.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
