package sqlitestore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grovetools/treenote/pkg/models"
)

var schema = []string{
	`CREATE TABLE node (
		node_id INTEGER UNIQUE,
		name TEXT,
		txt TEXT,
		syntax TEXT,
		tags TEXT,
		is_ro INTEGER,
		is_richtxt INTEGER,
		has_codebox INTEGER,
		has_table INTEGER,
		has_image INTEGER,
		level INTEGER,
		ts_creation INTEGER,
		ts_lastsave INTEGER
	)`,
	`CREATE TABLE codebox (
		node_id INTEGER,
		offset INTEGER,
		justification TEXT,
		txt TEXT,
		syntax TEXT,
		width INTEGER,
		height INTEGER,
		is_width_pix INTEGER,
		do_highl_bra INTEGER,
		do_show_linenum INTEGER
	)`,
	`CREATE TABLE grid (
		node_id INTEGER,
		offset INTEGER,
		justification TEXT,
		txt TEXT,
		col_min INTEGER,
		col_max INTEGER
	)`,
	`CREATE TABLE image (
		node_id INTEGER,
		offset INTEGER,
		justification TEXT,
		anchor TEXT,
		png BLOB,
		filename TEXT,
		link TEXT,
		time INTEGER
	)`,
	`CREATE TABLE children (
		node_id INTEGER UNIQUE,
		father_id INTEGER,
		sequence INTEGER
	)`,
	`CREATE TABLE bookmark (
		node_id INTEGER UNIQUE,
		sequence INTEGER
	)`,
}

// Tables in the order rows are wiped on a full rewrite.
var tables = []string{"codebox", "grid", "image", "children", "bookmark", "node"}

// packReadOnly stores the read-only flag in bit 0 and the icon id above it.
func packReadOnly(p models.NodeProperties) int64 {
	v := int64(p.CustomIconID) << 1
	if p.ReadOnly {
		v |= 1
	}
	return v
}

func unpackReadOnly(v int64, p *models.NodeProperties) {
	p.ReadOnly = v&1 != 0
	p.CustomIconID = int(v >> 1)
}

// packRichText stores rich text in bit 0, bold in bit 1, foreground presence
// in bit 2 and the 24-bit foreground color above them.
func packRichText(p models.NodeProperties) int64 {
	var v int64
	if p.IsRichText() {
		v |= 1
	}
	if p.Bold {
		v |= 1 << 1
	}
	if rgb, ok := parseRGB24(p.Foreground); ok {
		v |= 1 << 2
		v |= rgb << 3
	}
	return v
}

func unpackRichText(v int64, p *models.NodeProperties) {
	p.Bold = v&(1<<1) != 0
	if v&(1<<2) != 0 {
		p.Foreground = fmt.Sprintf("#%06x", (v>>3)&0xffffff)
	}
}

// packLevel stores the search exclusion flags.
func packLevel(p models.NodeProperties) int64 {
	var v int64
	if p.ExcludeFromSearch {
		v |= 1
	}
	if p.ExcludeChildrenFromSearch {
		v |= 1 << 1
	}
	return v
}

func unpackLevel(v int64, p *models.NodeProperties) {
	p.ExcludeFromSearch = v&1 != 0
	p.ExcludeChildrenFromSearch = v&(1<<1) != 0
}

// parseRGB24 accepts "#rrggbb" and "#rrrrggggbbbb".
func parseRGB24(s string) (int64, bool) {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 6:
	case 12:
		s = s[0:2] + s[4:6] + s[8:10]
	default:
		return 0, false
	}
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
