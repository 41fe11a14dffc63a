package xmlstore

import (
	"encoding/xml"

	"github.com/grovetools/treenote/pkg/markup"
)

// RootElement names the document element. Documents written by cherrytree
// use LegacyRootElement and are read as well.
const (
	RootElement       = "treenote"
	LegacyRootElement = "cherrytree"
)

// Slot element names.
const (
	slotRichText = "rich_text"
	slotPNG      = "encoded_png"
	slotCodeBox  = "codebox"
	slotTable    = "table"
)

type xmlDoc struct {
	XMLName   xml.Name
	Bookmarks *xmlBookmarks `xml:"bookmarks"`
	Nodes     []xmlNode     `xml:"node"`
}

type xmlBookmarks struct {
	List string `xml:"list,attr"`
}

type xmlNode struct {
	XMLName      xml.Name  `xml:"node"`
	Name         string    `xml:"name,attr"`
	ID           int64     `xml:"unique_id,attr"`
	ProgLang     string    `xml:"prog_lang,attr"`
	Tags         string    `xml:"tags,attr"`
	ReadOnly     string    `xml:"readonly,attr"`
	NoSearchMe   string    `xml:"nosearch_me,attr"`
	NoSearchCh   string    `xml:"nosearch_ch,attr"`
	CustomIconID string    `xml:"custom_icon_id,attr"`
	IsBold       string    `xml:"is_bold,attr"`
	Foreground   string    `xml:"foreground,attr"`
	TsCreation   string    `xml:"ts_creation,attr"`
	TsLastSave   string    `xml:"ts_lastsave,attr"`
	Slots        []xmlSlot `xml:",any"`
	Children     []xmlNode `xml:"node"`
}

// xmlSlot is any content element of a node: rich_text, encoded_png, codebox
// or table.
type xmlSlot struct {
	XMLName xml.Name
	Attrs   []xml.Attr   `xml:",any,attr"`
	Text    string       `xml:",chardata"`
	Rows    []markup.Row `xml:"row"`
}

func (s xmlSlot) attr(name string) string {
	for _, a := range s.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (s *xmlSlot) setAttr(name, value string) {
	s.Attrs = append(s.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}
