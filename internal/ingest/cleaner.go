// Package ingest turns raw mailbox messages into tracked job applications:
// it cleans email bodies, classifies them, extracts company and title, and
// writes the results through the job repository.
package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// truncateLength bounds cleaned bodies; classification signals live in the
// opening lines of application emails.
const truncateLength = 1000

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	emailPattern = regexp.MustCompile(`\S+@\S+`)
	spacePattern = regexp.MustCompile(`\s+`)

	// skippedContainers are container elements whose text content is never
	// visible. Void elements like img or meta need no entry: they carry no
	// text and have no end tag to balance a depth counter.
	skippedContainers = map[string]bool{
		"script": true, "style": true, "head": true, "button": true,
	}
)

// CleanBody strips HTML down to visible text, removes URLs and addresses,
// collapses whitespace, and truncates.
func CleanBody(body string) string {
	text := stripHTML(body)
	text = html.UnescapeString(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	// Truncate by runes, not bytes, so a multibyte character is never split.
	if len(text) > truncateLength {
		if runes := []rune(text); len(runes) > truncateLength {
			text = string(runes[:truncateLength])
		}
	}
	return text
}

// stripHTML extracts the text content of an HTML fragment. Plain-text input
// passes through unchanged since the tokenizer emits it as text.
func stripHTML(s string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(s))

	var b strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedContainers[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedContainers[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}
