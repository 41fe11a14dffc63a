package frontmatter

import (
	"reflect"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantFM   *Frontmatter
		wantBody string
		wantErr  bool
	}{
		{
			name: "valid frontmatter",
			content: `---
id: 12
title: Test Note
tags: [test, example]
syntax: python
created: 2023-01-01 10:00:00
modified: 2023-01-02 11:00:00
---

# Test Content

This is the body.`,
			wantFM: &Frontmatter{
				ID:       12,
				Title:    "Test Note",
				Tags:     []string{"test", "example"},
				Syntax:   "python",
				Created:  "2023-01-01 10:00:00",
				Modified: "2023-01-02 11:00:00",
			},
			wantBody: "\n# Test Content\n\nThis is the body.",
		},
		{
			name:     "no frontmatter",
			content:  "# Just a title\n\nSome content.",
			wantFM:   nil,
			wantBody: "# Just a title\n\nSome content.",
		},
		{
			name:     "windows line endings",
			content:  "---\r\ntitle: CRLF\r\n---\r\nBody",
			wantFM:   &Frontmatter{Title: "CRLF", Tags: []string{}},
			wantBody: "Body",
		},
		{
			name: "invalid yaml",
			content: `---
title: [invalid
---

Body`,
			wantFM: nil,
			wantBody: `---
title: [invalid
---

Body`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFM, gotBody, err := Parse(tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(gotFM, tt.wantFM) {
				t.Errorf("Parse() gotFM = %+v, want %+v", gotFM, tt.wantFM)
			}
			if gotBody != tt.wantBody {
				t.Errorf("Parse() gotBody = %q, want %q", gotBody, tt.wantBody)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		fm   *Frontmatter
		want string
	}{
		{
			name: "complete frontmatter",
			fm: &Frontmatter{
				ID:       3,
				Title:    "Test Note",
				Tags:     []string{"tag1", "tag2"},
				Syntax:   "sh",
				ReadOnly: true,
				Created:  "2023-01-01 10:00:00",
				Modified: "2023-01-02 11:00:00",
			},
			want: `---
id: 3
title: Test Note
tags: [tag1, tag2]
syntax: sh
readonly: true
created: 2023-01-01 10:00:00
modified: 2023-01-02 11:00:00
---`,
		},
		{
			name: "minimal frontmatter",
			fm:   &Frontmatter{Title: "Minimal"},
			want: `---
title: Minimal
tags: []
---`,
		},
		{
			name: "with special characters",
			fm: &Frontmatter{
				Title: "Note: Special, Characters",
				Tags:  []string{"tag:special", "plain"},
			},
			want: `---
title: "Note: Special, Characters"
tags: ["tag:special", plain]
---`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.fm)
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildContent(t *testing.T) {
	fm := &Frontmatter{Title: "Test", Tags: []string{}}

	tests := []struct {
		name        string
		body        string
		wantSpacing bool
	}{
		{name: "body without leading newline", body: "# Title\n\nContent", wantSpacing: true},
		{name: "body with leading newline", body: "\n# Title\n\nContent", wantSpacing: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildContent(fm, tt.body)
			want := Build(fm) + "\n" + tt.body
			if tt.wantSpacing {
				want = Build(fm) + "\n\n" + tt.body
			}
			if got != want {
				t.Errorf("BuildContent() spacing incorrect, got = %q, want = %q", got, want)
			}
		})
	}
}

func TestFormatAndParseTimestamp(t *testing.T) {
	now := time.Date(2023, 1, 15, 14, 30, 45, 0, time.Local)

	formatted := FormatTimestamp(now)
	if formatted != "2023-01-15 14:30:45" {
		t.Errorf("FormatTimestamp() = %q", formatted)
	}

	parsed, err := ParseTimestamp(formatted)
	if err != nil {
		t.Errorf("ParseTimestamp() error = %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("ParseTimestamp() = %v, want %v", parsed, now)
	}

	if got := FormatTimestamp(time.Time{}); got != "" {
		t.Errorf("FormatTimestamp(zero) = %q, want empty", got)
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name    string
		sources [][]string
		want    []string
	}{
		{
			name:    "merge with duplicates",
			sources: [][]string{{"a", "b"}, {"b", "c"}, {"a", "d"}},
			want:    []string{"a", "b", "c", "d"},
		},
		{
			name:    "empty sources",
			sources: [][]string{{}, {}},
			want:    []string{},
		},
		{
			name:    "with empty strings",
			sources: [][]string{{"a", "", "b"}, {"", "c"}},
			want:    []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTags(tt.sources...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	original := &Frontmatter{
		ID:       7,
		Title:    "Round Trip Test",
		Tags:     []string{"test", "frontmatter"},
		Syntax:   "go",
		ReadOnly: true,
		Created:  "2023-01-01 10:00:00",
		Modified: "2023-01-02 11:00:00",
	}
	body := "# Test Content\n\nThis is a test."

	parsed, parsedBody, err := Parse(BuildContent(original, body))
	if err != nil {
		t.Fatalf("Failed to parse round-trip content: %v", err)
	}
	if !reflect.DeepEqual(parsed, original) {
		t.Errorf("Round trip frontmatter mismatch\noriginal: %+v\nparsed: %+v", original, parsed)
	}
	if parsedBody != "\n"+body {
		t.Errorf("Round trip body mismatch: %q", parsedBody)
	}
}
