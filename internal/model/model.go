package model

import (
	"unicode"
	"unicode/utf8"
)

// SearchResultsKey is the single section key used for free-text search.
const SearchResultsKey = "Search Results"

// TopicCount is the number of topics a saved preference set carries.
const TopicCount = 3

type Article struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type Preferences struct {
	Country string   `json:"country"`
	Topics  []string `json:"topics"`
}

// DefaultPreferences stands in until the user saves their own.
func DefaultPreferences() Preferences {
	return Preferences{
		Country: "us",
		Topics:  []string{"technology", "business", "health"},
	}
}

// IsSet reports whether p carries any topics. Zero topics means "unset",
// never a zero-topic feed.
func (p Preferences) IsSet() bool {
	return len(p.Topics) > 0
}

func (p Preferences) Clone() Preferences {
	return Preferences{Country: p.Country, Topics: append([]string(nil), p.Topics...)}
}

type Section struct {
	Key      string    `json:"key"`
	Articles []Article `json:"articles"`
}

// Title is the display heading for a section ("technology" -> "Technology").
func (s Section) Title() string {
	r, size := utf8.DecodeRuneInString(s.Key)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + s.Key[size:]
}

// CountArticles sums articles across sections.
func CountArticles(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Articles)
	}
	return n
}

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Query parameterizes one content fetch. Country and Category are optional.
type Query struct {
	Text     string
	Country  string
	Category string
}

func (q Query) Key() string {
	return q.Text + "|" + q.Country + "|" + q.Category
}
