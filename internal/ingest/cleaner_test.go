package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanBody(t *testing.T) {
	t.Run("strips html tags and keeps text", func(t *testing.T) {
		got := CleanBody("<html><body><p>Thank you for <b>applying</b> to Acme</p></body></html>")
		assert.Equal(t, "Thank you for applying to Acme", got)
	})

	t.Run("drops script and style content", func(t *testing.T) {
		got := CleanBody("<style>.x{color:red}</style><script>alert(1)</script><p>visible</p>")
		assert.Equal(t, "visible", got)
		assert.NotContains(t, got, "alert")
		assert.NotContains(t, got, "color")
	})

	t.Run("removes urls and email addresses", func(t *testing.T) {
		got := CleanBody("Apply at https://jobs.acme.example/123 or write hr@acme.example today")
		assert.NotContains(t, got, "https://")
		assert.NotContains(t, got, "@")
		assert.Contains(t, got, "Apply at")
		assert.Contains(t, got, "today")
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := CleanBody("hello\n\n\t  world")
		assert.Equal(t, "hello world", got)
	})

	t.Run("unescapes html entities", func(t *testing.T) {
		got := CleanBody("Johnson &amp; Johnson")
		assert.Equal(t, "Johnson & Johnson", got)
	})

	t.Run("void elements do not swallow following text", func(t *testing.T) {
		got := CleanBody(`<p>Hello candidate</p><img src="logo.png"><p>We regret to inform you.</p>`)
		assert.Contains(t, got, "Hello candidate")
		assert.Contains(t, got, "We regret to inform you.")
	})

	t.Run("leading meta tag keeps body text", func(t *testing.T) {
		got := CleanBody(`<meta charset="utf-8"><p>Thank you for applying to Acme.</p>`)
		assert.Equal(t, "Thank you for applying to Acme.", got)
	})

	t.Run("self closing void element keeps text", func(t *testing.T) {
		got := CleanBody(`<br/>before<img src="x"/>after`)
		assert.Contains(t, got, "before")
		assert.Contains(t, got, "after")
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		got := CleanBody(strings.Repeat("a", 5000))
		assert.Len(t, got, 1000)
	})

	t.Run("truncation never splits a multibyte rune", func(t *testing.T) {
		got := CleanBody(strings.Repeat("é", 3000))
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, 1000, utf8.RuneCountInString(got))
	})

	t.Run("plain text passes through", func(t *testing.T) {
		got := CleanBody("no markup here")
		assert.Equal(t, "no markup here", got)
	})
}
