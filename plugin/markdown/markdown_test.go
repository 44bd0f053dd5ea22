package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	svc := NewService()

	html, err := svc.RenderHTML("# Report\n\nSome **bold** findings.")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Report</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestRenderHTMLTables(t *testing.T) {
	svc := NewService()

	html, err := svc.RenderHTML("| a | b |\n| - | - |\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestRenderHTMLHardWraps(t *testing.T) {
	soft := NewService()
	hard := NewService(WithHardWraps())

	softHTML, err := soft.RenderHTML("line one\nline two")
	require.NoError(t, err)
	assert.NotContains(t, softHTML, "<br>")

	hardHTML, err := hard.RenderHTML("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, hardHTML, "<br>")
}

func TestRenderHTMLEmpty(t *testing.T) {
	svc := NewService()

	html, err := svc.RenderHTML("")
	require.NoError(t, err)
	assert.Equal(t, "", html)
}
