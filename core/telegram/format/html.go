package format

import (
	"html"
	"strconv"
	"strings"
)

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Link renders an HTML anchor with an escaped label.
func Link(href, label string) string {
	return `<a href="` + html.EscapeString(href) + `">` + html.EscapeString(label) + `</a>`
}

// UserLink renders a tg://user mention for the given user id.
func UserLink(userID int64, label string) string {
	return Link("tg://user?id="+strconv.FormatInt(userID, 10), label)
}

// PublicLink returns the https://t.me URL for a public username, or "" when the chat has none.
func PublicLink(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return ""
	}
	return "https://t.me/" + username
}
