// Package markup converts rich text runs and table matrices to and from the
// XML fragments shared by both storage backends.
package markup

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grovetools/treenote/pkg/models"
)

// RichText is one formatted run: <rich_text weight="heavy">text</rich_text>.
type RichText struct {
	XMLName xml.Name   `xml:"rich_text"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
}

// Row is a table row: <row><cell>..</cell></row>.
type Row struct {
	Cells []string `xml:"cell"`
}

type nodeDoc struct {
	XMLName xml.Name   `xml:"node"`
	Runs    []RichText `xml:"rich_text"`
}

type tableDoc struct {
	XMLName   xml.Name `xml:"table"`
	ColWidths string   `xml:"col_widths,attr"`
	IsLight   string   `xml:"is_light,attr,omitempty"`
	Rows      []Row    `xml:"row"`
}

// FromRun builds the element for r with attributes in name order.
func FromRun(r models.Run) RichText {
	rt := RichText{Text: r.Text}
	if len(r.Attrs) == 0 {
		return rt
	}
	keys := make([]string, 0, len(r.Attrs))
	for k := range r.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rt.Attrs = append(rt.Attrs, xml.Attr{Name: xml.Name{Local: k}, Value: r.Attrs[k]})
	}
	return rt
}

// Run is the inverse of FromRun.
func (rt RichText) Run() models.Run {
	r := models.Run{Text: rt.Text}
	for _, a := range rt.Attrs {
		if a.Name.Space != "" {
			continue
		}
		if r.Attrs == nil {
			r.Attrs = make(map[string]string, len(rt.Attrs))
		}
		r.Attrs[a.Name.Local] = a.Value
	}
	return r
}

// EncodeRuns serializes runs as a standalone <node> document.
func EncodeRuns(runs []models.Run) (string, error) {
	doc := nodeDoc{Runs: make([]RichText, len(runs))}
	for i, r := range runs {
		doc.Runs[i] = FromRun(r)
	}
	return marshalDoc(doc)
}

// DecodeRuns parses a document written by EncodeRuns.
func DecodeRuns(s string) ([]models.Run, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var doc nodeDoc
	if err := unmarshalLenient([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("parse rich text: %w", err)
	}
	if len(doc.Runs) == 0 {
		return nil, nil
	}
	runs := make([]models.Run, len(doc.Runs))
	for i, rt := range doc.Runs {
		runs[i] = rt.Run()
	}
	return runs, nil
}

// TableRows converts a header-first matrix to the persisted row order, in
// which the header row comes last.
func TableRows(matrix [][]string) []Row {
	if len(matrix) == 0 {
		return nil
	}
	rows := make([]Row, 0, len(matrix))
	for _, r := range matrix[1:] {
		rows = append(rows, Row{Cells: append([]string(nil), r...)})
	}
	return append(rows, Row{Cells: append([]string(nil), matrix[0]...)})
}

// TableMatrix is the inverse of TableRows.
func TableMatrix(rows []Row) [][]string {
	if len(rows) == 0 {
		return nil
	}
	matrix := make([][]string, 0, len(rows))
	last := rows[len(rows)-1]
	matrix = append(matrix, cells(last))
	for _, r := range rows[:len(rows)-1] {
		matrix = append(matrix, cells(r))
	}
	return matrix
}

func cells(r Row) []string {
	if r.Cells == nil {
		return []string{}
	}
	return r.Cells
}

// EncodeTable serializes the cells, column widths and light flag of t as a
// standalone <table> document. Placement and column bounds are not included.
func EncodeTable(t *models.Table) (string, error) {
	doc := tableDoc{
		ColWidths: JoinInts(t.ColWidths),
		Rows:      TableRows(t.Rows),
	}
	if t.IsLight {
		doc.IsLight = "1"
	}
	return marshalDoc(doc)
}

// DecodeTable fills the cells, column widths and light flag of t.
func DecodeTable(s string, t *models.Table) error {
	var doc tableDoc
	if err := unmarshalLenient([]byte(s), &doc); err != nil {
		return fmt.Errorf("parse table: %w", err)
	}
	widths, err := SplitInts(doc.ColWidths)
	if err != nil {
		return fmt.Errorf("parse table column widths: %w", err)
	}
	t.Rows = TableMatrix(doc.Rows)
	t.ColWidths = widths
	t.IsLight = ParseBool(doc.IsLight)
	return nil
}

// JoinInts renders a comma separated list; nil renders as "".
func JoinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// SplitInts parses JoinInts output. An empty string yields nil.
func SplitInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// FormatBool renders booleans as "1" and "0".
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool accepts 1/0 and true/false in any case.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true
	}
	return false
}

func marshalDoc(v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// unmarshalLenient parses data, retrying once on a sanitized copy.
func unmarshalLenient(data []byte, v any) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if retryErr := xml.Unmarshal(Sanitize(data), v); retryErr != nil {
		return err
	}
	return nil
}
