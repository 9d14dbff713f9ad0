package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCodePageEscapesContent(t *testing.T) {
	html, err := RenderCodePage(CodePageData{Path: "abcd", Content: "<script>alert(1)</script>", Language: "go"})
	require.NoError(t, err)

	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, html, `class="language-go"`)
	assert.Contains(t, html, `{"language":"go"}`)
}

func TestRenderCodePageDefaultsLanguage(t *testing.T) {
	html, err := RenderCodePage(CodePageData{Path: "abcd", Content: "x"})
	require.NoError(t, err)
	assert.Contains(t, html, `{"language":"text"}`)
}

func TestRenderPasswordPage(t *testing.T) {
	prompt, err := RenderPasswordPage(PasswordPageData{Path: "abcd"})
	require.NoError(t, err)
	assert.Contains(t, prompt, `{"error":false,"path_name":"abcd"}`)
	assert.NotContains(t, prompt, "Wrong password")

	failed, err := RenderPasswordPage(PasswordPageData{Path: "abcd", Failed: true})
	require.NoError(t, err)
	assert.Contains(t, failed, `{"error":true,"path_name":"abcd"}`)
	assert.Contains(t, failed, "Wrong password")
}

func TestRenderNotFoundPage(t *testing.T) {
	html, err := RenderNotFoundPage("gone")
	require.NoError(t, err)
	assert.Contains(t, html, "/gone")
}
