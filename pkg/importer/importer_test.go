package importer

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/treenote/pkg/models"
)

func TestParseRichPage(t *testing.T) {
	src := "---\ntitle: Design\ntags: [go, storage]\ncreated: 2024-03-01 09:00:00\n---\n" +
		"# Overview\n\nSome *soft* and **bold** text with `code` and a [link](https://example.com).\n\n" +
		"- one\n- two\n\n" +
		"```go\nfmt.Println(1)\n```\n\n" +
		"| k | v |\n|---|---|\n| a | 1 |\n"

	page, err := Parse([]byte(src), "notes/design.md")
	require.NoError(t, err)

	assert.Equal(t, "Design", page.Props.Name)
	assert.Equal(t, "go storage", page.Props.Tags)
	assert.Equal(t, models.SyntaxRichText, page.Props.Syntax)
	assert.Equal(t, 2024, page.Props.CreatedAt.Year())

	c := page.Content
	require.NotEmpty(t, c.Runs)
	assert.Equal(t, "Overview", c.Runs[0].Text)
	assert.Equal(t, "h1", c.Runs[0].Attrs["scale"])

	byText := map[string]map[string]string{}
	for _, r := range c.Runs {
		byText[r.Text] = r.Attrs
	}
	assert.Equal(t, "italic", byText["soft"]["style"])
	assert.Equal(t, "heavy", byText["bold"]["weight"])
	assert.Equal(t, "monospace", byText["code"]["family"])
	assert.Equal(t, "webs https://example.com", byText["link"]["link"])
	assert.Contains(t, c.Text(), "• one\n• two\n")

	require.Len(t, c.Objects, 2)
	box, ok := c.Objects[0].(*models.CodeBox)
	require.True(t, ok)
	assert.Equal(t, "go", box.Syntax)
	assert.Equal(t, "fmt.Println(1)", box.Text)

	tbl, ok := c.Objects[1].(*models.Table)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"k", "v"}, {"a", "1"}}, tbl.Rows)
	assert.Equal(t, box.Offset+1, tbl.Offset-1, "one newline between the objects")

	text := []rune(c.Text())
	assert.LessOrEqual(t, box.Offset, len(text))
}

func TestParseTitleFallbacks(t *testing.T) {
	page, err := Parse([]byte("Intro\n\n# Heading One\n"), "x.md")
	require.NoError(t, err)
	assert.Equal(t, "Heading One", page.Props.Name)

	page, err = Parse([]byte("just text"), "/tmp/meeting notes.md")
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", page.Props.Name)
	assert.Equal(t, "just text", page.Content.Text())
}

func TestParsePlainSyntax(t *testing.T) {
	page, err := Parse([]byte("---\ntitle: script\nsyntax: sh\n---\n# not a heading\necho hi\n"), "s.md")
	require.NoError(t, err)
	assert.Equal(t, "sh", page.Props.Syntax)
	assert.Equal(t, "# not a heading\necho hi\n", page.Content.Text())
}

func TestParseInvalidFrontmatter(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: [broken\n---\nbody"), "b.md")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/page.md", []byte("hello ~~old~~ new"), 0o644))

	page, err := ReadFile(fs, "/in/page.md")
	require.NoError(t, err)
	assert.Equal(t, "page", page.Props.Name)
	var struck string
	for _, r := range page.Content.Runs {
		if r.Attrs["strikethrough"] == "true" {
			struck = r.Text
		}
	}
	assert.Equal(t, "old", struck)

	_, err = ReadFile(fs, "/in/missing.md")
	assert.Error(t, err)
}
