package xmlstore

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grovetools/treenote/pkg/markup"
	"github.com/grovetools/treenote/pkg/models"
)

func nodeProps(n xmlNode) models.NodeProperties {
	icon, _ := strconv.Atoi(n.CustomIconID)
	created, _ := strconv.ParseInt(n.TsCreation, 10, 64)
	saved, _ := strconv.ParseInt(n.TsLastSave, 10, 64)
	syntax := n.ProgLang
	if syntax == "" {
		syntax = models.SyntaxRichText
	}
	return models.NodeProperties{
		Name:                      n.Name,
		Syntax:                    syntax,
		Tags:                      n.Tags,
		ReadOnly:                  markup.ParseBool(n.ReadOnly),
		Bold:                      markup.ParseBool(n.IsBold),
		Foreground:                n.Foreground,
		CustomIconID:              icon,
		ExcludeFromSearch:         markup.ParseBool(n.NoSearchMe),
		ExcludeChildrenFromSearch: markup.ParseBool(n.NoSearchCh),
		CreatedAt:                 models.FromUnix(created),
		ModifiedAt:                models.FromUnix(saved),
	}
}

func nodeElement(rec models.NodeRecord) xmlNode {
	return xmlNode{
		Name:         rec.Name,
		ID:           int64(rec.ID),
		ProgLang:     rec.Syntax,
		Tags:         rec.Tags,
		ReadOnly:     markup.FormatBool(rec.ReadOnly),
		NoSearchMe:   markup.FormatBool(rec.ExcludeFromSearch),
		NoSearchCh:   markup.FormatBool(rec.ExcludeChildrenFromSearch),
		CustomIconID: strconv.Itoa(rec.CustomIconID),
		IsBold:       markup.FormatBool(rec.Bold),
		Foreground:   rec.Foreground,
		TsCreation:   strconv.FormatInt(models.UnixSeconds(rec.CreatedAt), 10),
		TsLastSave:   strconv.FormatInt(models.UnixSeconds(rec.ModifiedAt), 10),
	}
}

// slotsToContent converts the cached slots of one node.
func slotsToContent(slots []xmlSlot, syntax string) (*models.Content, error) {
	if syntax != models.SyntaxRichText {
		var sb strings.Builder
		for _, s := range slots {
			if s.XMLName.Local == slotRichText {
				sb.WriteString(s.Text)
			}
		}
		return models.PlainContent(sb.String()), nil
	}

	c := &models.Content{}
	for _, s := range slots {
		if s.XMLName.Local == slotRichText {
			c.Runs = append(c.Runs, markup.RichText{Attrs: s.Attrs, Text: s.Text}.Run())
			continue
		}
		obj, err := slotObject(s)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			c.Objects = append(c.Objects, obj)
		}
	}
	sort.SliceStable(c.Objects, func(i, j int) bool {
		return c.Objects[i].Position().Offset < c.Objects[j].Position().Offset
	})
	return c, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func slotObject(s xmlSlot) (models.AnchoredObject, error) {
	pl := models.Placement{
		Offset:        atoi(s.attr("char_offset")),
		Justification: models.ParseJustification(s.attr("justification")),
	}
	switch s.XMLName.Local {
	case slotPNG:
		if name := s.attr("anchor"); name != "" {
			return &models.Anchor{Placement: pl, Name: name}, nil
		}
		data, err := decodeBase64(s.Text)
		if err != nil {
			return nil, fmt.Errorf("decode embedded data at offset %d: %w", pl.Offset, err)
		}
		if name := s.attr("filename"); name != "" {
			ts, _ := strconv.ParseInt(s.attr("time"), 10, 64)
			return &models.EmbeddedFile{Placement: pl, FileName: name, Data: data, Time: models.FromUnix(ts)}, nil
		}
		return &models.Image{Placement: pl, PNG: data, Link: s.attr("link")}, nil
	case slotCodeBox:
		return &models.CodeBox{
			Placement:         pl,
			Text:              s.Text,
			Syntax:            s.attr("syntax_highlighting"),
			Width:             atoi(s.attr("frame_width")),
			Height:            atoi(s.attr("frame_height")),
			WidthInPixels:     markup.ParseBool(s.attr("width_in_pixels")),
			HighlightBrackets: markup.ParseBool(s.attr("highlight_brackets")),
			ShowLineNumbers:   markup.ParseBool(s.attr("show_line_numbers")),
		}, nil
	case slotTable:
		widths, err := markup.SplitInts(s.attr("col_widths"))
		if err != nil {
			return nil, fmt.Errorf("parse table column widths: %w", err)
		}
		return &models.Table{
			Placement: pl,
			Rows:      markup.TableMatrix(s.Rows),
			ColMin:    atoi(s.attr("col_min")),
			ColMax:    atoi(s.attr("col_max")),
			ColWidths: widths,
			IsLight:   markup.ParseBool(s.attr("is_light")),
		}, nil
	}
	// unknown slot kinds are skipped
	return nil, nil
}

func decodeBase64(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(clean)
}

// contentSlots converts content to slots. encoded holds the base64 payload
// of every image and embedded file.
func contentSlots(c *models.Content, syntax string, encoded map[models.AnchoredObject]string) []xmlSlot {
	if syntax != models.SyntaxRichText {
		text := c.Text()
		if text == "" {
			return nil
		}
		return []xmlSlot{{XMLName: xml.Name{Local: slotRichText}, Text: text}}
	}

	slots := make([]xmlSlot, 0, len(c.Runs)+len(c.Objects))
	for _, r := range c.Runs {
		rt := markup.FromRun(r)
		slots = append(slots, xmlSlot{XMLName: xml.Name{Local: slotRichText}, Attrs: rt.Attrs, Text: rt.Text})
	}
	for _, o := range c.Objects {
		slots = append(slots, objectSlot(o, encoded))
	}
	return slots
}

func objectSlot(o models.AnchoredObject, encoded map[models.AnchoredObject]string) xmlSlot {
	pos := o.Position()
	var s xmlSlot
	setPlacement := func(name string) {
		s.XMLName = xml.Name{Local: name}
		s.setAttr("char_offset", strconv.Itoa(pos.Offset))
		s.setAttr("justification", string(models.ParseJustification(string(pos.Justification))))
	}
	switch obj := o.(type) {
	case *models.Image:
		setPlacement(slotPNG)
		s.setAttr("link", obj.Link)
		s.Text = encoded[o]
	case *models.Anchor:
		setPlacement(slotPNG)
		s.setAttr("anchor", obj.Name)
	case *models.EmbeddedFile:
		setPlacement(slotPNG)
		s.setAttr("filename", obj.FileName)
		s.setAttr("time", strconv.FormatInt(models.UnixSeconds(obj.Time), 10))
		s.Text = encoded[o]
	case *models.CodeBox:
		setPlacement(slotCodeBox)
		s.setAttr("frame_width", strconv.Itoa(obj.Width))
		s.setAttr("frame_height", strconv.Itoa(obj.Height))
		s.setAttr("width_in_pixels", markup.FormatBool(obj.WidthInPixels))
		s.setAttr("syntax_highlighting", obj.Syntax)
		s.setAttr("highlight_brackets", markup.FormatBool(obj.HighlightBrackets))
		s.setAttr("show_line_numbers", markup.FormatBool(obj.ShowLineNumbers))
		s.Text = obj.Text
	case *models.Table:
		setPlacement(slotTable)
		s.setAttr("col_min", strconv.Itoa(obj.ColMin))
		s.setAttr("col_max", strconv.Itoa(obj.ColMax))
		s.setAttr("col_widths", markup.JoinInts(obj.ColWidths))
		if obj.IsLight {
			s.setAttr("is_light", "1")
		}
		s.Rows = markup.TableRows(obj.Rows)
	}
	return s
}
