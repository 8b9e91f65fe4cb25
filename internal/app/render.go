package app

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"bytenews/internal/feed"
	"bytenews/internal/prefs"
)

const (
	MsgLoading         = "Loading news..."
	MsgNoPersonalized  = "No personalized news sections found. Please set your preferences or try different ones."
	MsgFetchFailed     = "Failed to fetch news. Please try again."
	msgNoSearchResults = "No search results found for %q."
)

// Heading is the title shown above the feed.
func Heading(v feed.View) string {
	if v.Mode == "searching" {
		return fmt.Sprintf("Search Results for %q", v.Term)
	}
	return "Your Personalized News"
}

// StatusMessage is the single line describing a view that has no sections
// to show, or "" when the sections speak for themselves.
func StatusMessage(v feed.View) string {
	switch v.Status {
	case feed.Loading:
		return MsgLoading
	case feed.Expired:
		return prefs.MsgSessionExpired
	case feed.Empty:
		if v.Mode == "searching" {
			return fmt.Sprintf(msgNoSearchResults, v.Term)
		}
		return MsgNoPersonalized
	case feed.Error:
		if v.Err != nil {
			return MsgFetchFailed
		}
	}
	return ""
}

// RenderFeed prints v the way the terminal driver shows it. Articles are
// numbered across sections so they can be picked for chat.
func RenderFeed(w io.Writer, v feed.View) {
	fmt.Fprintf(w, "\n== %s ==\n", Heading(v))

	if v.Warning != "" && v.Status != feed.Expired {
		fmt.Fprintln(w, "!", v.Warning)
	}
	if msg := StatusMessage(v); msg != "" {
		fmt.Fprintln(w, msg)
	}
	if v.Status != feed.Ready {
		return
	}

	if v.Preferences != nil && v.Mode != "searching" {
		topics := make([]string, len(v.Preferences.Topics))
		for i, t := range v.Preferences.Topics {
			topics[i] = titleCase(t)
		}
		fmt.Fprintf(w, "Showing news for: %s | Topics: %s\n",
			strings.ToUpper(v.Preferences.Country), strings.Join(topics, ", "))
	}

	if len(v.FailedTopics) > 0 {
		fmt.Fprintf(w, "! Could not load: %s\n", strings.Join(v.FailedTopics, ", "))
	}

	n := 0
	for _, sec := range v.Sections {
		fmt.Fprintf(w, "\n-- %s --\n", sec.Title())
		if len(sec.Articles) == 0 {
			fmt.Fprintf(w, "No news found for '%s'.\n", sec.Key)
			continue
		}
		for _, a := range sec.Articles {
			n++
			fmt.Fprintf(w, "%2d) %s\n", n, a.Title)
			if a.Summary != "" {
				fmt.Fprintf(w, "    %s\n", a.Summary)
			}
			fmt.Fprintf(w, "    Source: %s | %s\n", a.Source, a.URL)
		}
	}
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
