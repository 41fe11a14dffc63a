package models

// Summary counts nodes by syntax and anchored objects by kind.
type Summary struct {
	RichTextNodes  int `json:"rich_text_nodes" yaml:"rich_text_nodes"`
	PlainTextNodes int `json:"plain_text_nodes" yaml:"plain_text_nodes"`
	CodeNodes      int `json:"code_nodes" yaml:"code_nodes"`
	Images         int `json:"images" yaml:"images"`
	EmbeddedFiles  int `json:"embedded_files" yaml:"embedded_files"`
	Anchors        int `json:"anchors" yaml:"anchors"`
	CodeBoxes      int `json:"codeboxes" yaml:"codeboxes"`
	Tables         int `json:"tables" yaml:"tables"`
}

// Nodes is the total node count.
func (s Summary) Nodes() int {
	return s.RichTextNodes + s.PlainTextNodes + s.CodeNodes
}

// Add accounts for one node.
func (s *Summary) Add(props NodeProperties, c *Content) {
	switch {
	case props.IsRichText():
		s.RichTextNodes++
	case props.Syntax == SyntaxPlainText:
		s.PlainTextNodes++
	default:
		s.CodeNodes++
	}
	if c == nil {
		return
	}
	for _, o := range c.Objects {
		switch o.Kind() {
		case KindImage:
			s.Images++
		case KindEmbeddedFile:
			s.EmbeddedFiles++
		case KindAnchor:
			s.Anchors++
		case KindCodeBox:
			s.CodeBoxes++
		case KindTable:
			s.Tables++
		}
	}
}
