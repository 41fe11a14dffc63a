package models

import (
	"strings"
	"time"
)

// Run is a span of text sharing one set of formatting attributes
// (weight, foreground, scale, link...). Attrs is nil for unformatted text.
type Run struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Content is the heavy part of a node: its text and anchored objects.
// Plain-text and code nodes carry a single run without attributes and no objects.
type Content struct {
	Runs    []Run
	Objects []AnchoredObject
}

// PlainContent builds the content of a plain-text or code node.
func PlainContent(text string) *Content {
	if text == "" {
		return &Content{}
	}
	return &Content{Runs: []Run{{Text: text}}}
}

// Text concatenates every run, ignoring formatting and objects.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, r := range c.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Clone returns a deep copy.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := &Content{}
	if c.Runs != nil {
		out.Runs = make([]Run, len(c.Runs))
		for i, r := range c.Runs {
			out.Runs[i] = Run{Text: r.Text}
			if r.Attrs != nil {
				out.Runs[i].Attrs = make(map[string]string, len(r.Attrs))
				for k, v := range r.Attrs {
					out.Runs[i].Attrs[k] = v
				}
			}
		}
	}
	if c.Objects != nil {
		out.Objects = make([]AnchoredObject, len(c.Objects))
		for i, o := range c.Objects {
			out.Objects[i] = o.clone()
		}
	}
	return out
}

// Has reports whether at least one object of the given kind is present.
func (c *Content) Has(kind ObjectKind) bool {
	if c == nil {
		return false
	}
	for _, o := range c.Objects {
		if o.Kind() == kind {
			return true
		}
	}
	return false
}

// ObjectKind discriminates anchored objects.
type ObjectKind string

const (
	KindImage        ObjectKind = "image"
	KindAnchor       ObjectKind = "anchor"
	KindEmbeddedFile ObjectKind = "file"
	KindCodeBox      ObjectKind = "codebox"
	KindTable        ObjectKind = "table"
)

// Justification of an anchored object within its line.
type Justification string

const (
	JustifyLeft   Justification = "left"
	JustifyCenter Justification = "center"
	JustifyRight  Justification = "right"
	JustifyFill   Justification = "fill"
)

// ParseJustification maps unknown or empty values to left.
func ParseJustification(s string) Justification {
	switch Justification(s) {
	case JustifyCenter, JustifyRight, JustifyFill:
		return Justification(s)
	}
	return JustifyLeft
}

// Placement locates an object inside the node buffer. Every object counts as
// one character when computing offsets.
type Placement struct {
	Offset        int
	Justification Justification
}

// AnchoredObject is one of Image, Anchor, EmbeddedFile, CodeBox or Table.
type AnchoredObject interface {
	Kind() ObjectKind
	Position() Placement
	clone() AnchoredObject
}

type Image struct {
	Placement
	PNG  []byte
	Link string
}

type Anchor struct {
	Placement
	Name string
}

type EmbeddedFile struct {
	Placement
	FileName string
	Data     []byte
	Time     time.Time
}

type CodeBox struct {
	Placement
	Text              string
	Syntax            string
	Width             int
	Height            int
	WidthInPixels     bool
	HighlightBrackets bool
	ShowLineNumbers   bool
}

// Table cells are row-major and the first row is the header.
type Table struct {
	Placement
	Rows      [][]string
	ColMin    int
	ColMax    int
	ColWidths []int
	IsLight   bool
}

func (o *Image) Kind() ObjectKind        { return KindImage }
func (o *Anchor) Kind() ObjectKind       { return KindAnchor }
func (o *EmbeddedFile) Kind() ObjectKind { return KindEmbeddedFile }
func (o *CodeBox) Kind() ObjectKind      { return KindCodeBox }
func (o *Table) Kind() ObjectKind        { return KindTable }

func (p Placement) Position() Placement { return p }

func (o *Image) clone() AnchoredObject {
	c := *o
	c.PNG = append([]byte(nil), o.PNG...)
	return &c
}

func (o *Anchor) clone() AnchoredObject {
	c := *o
	return &c
}

func (o *EmbeddedFile) clone() AnchoredObject {
	c := *o
	c.Data = append([]byte(nil), o.Data...)
	return &c
}

func (o *CodeBox) clone() AnchoredObject {
	c := *o
	return &c
}

func (o *Table) clone() AnchoredObject {
	c := *o
	c.Rows = make([][]string, len(o.Rows))
	for i, row := range o.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	if o.ColWidths != nil {
		c.ColWidths = append([]int(nil), o.ColWidths...)
	}
	return &c
}
