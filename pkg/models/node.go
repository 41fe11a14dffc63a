package models

import (
	"strings"
	"time"
)

// NodeID identifies a node inside one document. Zero means "no node", which
// is also the parent id of every root-level node.
type NodeID int64

// Syntax kinds. Any other value names a source-code syntax.
const (
	SyntaxRichText  = "custom-colors"
	SyntaxPlainText = "plain-text"
)

// NodeProperties holds everything about a node except its content and
// position in the tree.
type NodeProperties struct {
	Name                      string    `json:"name" yaml:"name"`
	Syntax                    string    `json:"syntax" yaml:"syntax"`
	Tags                      string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	ReadOnly                  bool      `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	Bold                      bool      `json:"bold,omitempty" yaml:"bold,omitempty"`
	Foreground                string    `json:"foreground,omitempty" yaml:"foreground,omitempty"` // "#rrggbb"
	CustomIconID              int       `json:"custom_icon_id,omitempty" yaml:"custom_icon_id,omitempty"`
	ExcludeFromSearch         bool      `json:"exclude_from_search,omitempty" yaml:"exclude_from_search,omitempty"`
	ExcludeChildrenFromSearch bool      `json:"exclude_children_from_search,omitempty" yaml:"exclude_children_from_search,omitempty"`
	CreatedAt                 time.Time `json:"created_at" yaml:"created_at"`
	ModifiedAt                time.Time `json:"modified_at" yaml:"modified_at"`
}

// IsRichText reports whether the node holds formatted text with anchored objects.
func (p NodeProperties) IsRichText() bool {
	return p.Syntax == SyntaxRichText
}

// IsCode reports whether the node holds source code.
func (p NodeProperties) IsCode() bool {
	return p.Syntax != SyntaxRichText && p.Syntax != SyntaxPlainText
}

// TagList splits the space separated tag string.
func (p NodeProperties) TagList() []string {
	return strings.Fields(p.Tags)
}

// NodeRecord is a flattened node as exchanged between the tree and the codecs.
// Content is nil when it was not loaded or not needed.
type NodeRecord struct {
	ID       NodeID `json:"id" yaml:"id"`
	ParentID NodeID `json:"parent_id" yaml:"parent_id"`
	Sequence int    `json:"sequence" yaml:"sequence"`
	NodeProperties `yaml:",inline"`
	Content  *Content `json:"-" yaml:"-"`
}

// Now returns the current time at the resolution persisted by the codecs.
func Now() time.Time {
	return time.Unix(time.Now().Unix(), 0)
}

// UnixSeconds converts t for storage. The zero time is stored as 0.
func UnixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// FromUnix is the inverse of UnixSeconds.
func FromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
