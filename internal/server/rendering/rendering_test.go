package rendering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_BasicMarkdown(t *testing.T) {
	r := New("github")

	out, err := r.Render("# Title\n\nSome *emphasis* here.")
	require.NoError(t, err)
	require.Contains(t, out, "<h1")
	require.Contains(t, out, "<em>emphasis</em>")
}

func TestRender_HighlightsFencedCode(t *testing.T) {
	r := New("github")

	out, err := r.Render("```rust\nfn main() {}\n```")
	require.NoError(t, err)
	require.Contains(t, out, "<pre")
	require.Contains(t, out, "main")
}

func TestRender_Pure(t *testing.T) {
	r := New("")
	in := "## Heading\n\n- one\n- two\n"

	a, err := r.Render(in)
	require.NoError(t, err)
	b, err := r.Render(in)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRender_EmptyInput(t *testing.T) {
	r := New("github")
	out, err := r.Render("")
	require.NoError(t, err)
	require.Equal(t, "", strings.TrimSpace(out))
}
