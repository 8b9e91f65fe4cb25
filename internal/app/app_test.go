package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bytenews/internal/config"
	"bytenews/internal/feed"
	"bytenews/internal/model"
	"bytenews/internal/session"
	"bytenews/internal/stubapi"
)

func newTestService(t *testing.T) (*Service, *stubapi.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := stubapi.New()
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL + "/api"
	cfg.RefreshSchedule = "off"

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewServiceWithSession(cfg, session.New(""), log)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, stub
}

func loggedIn(t *testing.T) (*Service, *stubapi.Server) {
	t.Helper()
	svc, stub := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "ada", "lovelace")
	require.NoError(t, err)
	msg, err := svc.Login(ctx, "ada", "lovelace")
	require.NoError(t, err)
	require.Equal(t, "Login successful", msg)
	svc.Mode.Wait()
	return svc, stub
}

func sectionKeys(v feed.View) []string {
	keys := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		keys[i] = s.Key
	}
	return keys
}

func TestLoginLoadsDefaultFeed(t *testing.T) {
	svc, _ := loggedIn(t)

	v := svc.Mode.View()
	assert.Equal(t, feed.Ready, v.Status)
	assert.Equal(t, []string{"technology", "business", "health"}, sectionKeys(v))
	assert.Len(t, v.Sections[0].Articles, feed.PerTopic)

	a, ok := svc.Article(4)
	require.True(t, ok)
	assert.Equal(t, "Retail Sales Beat Expectations", a.Title)
	_, ok = svc.Article(99)
	assert.False(t, ok)
}

func TestSavePreferencesReloadsFeed(t *testing.T) {
	svc, _ := loggedIn(t)

	msg, err := svc.SavePreferences(context.Background(), model.Preferences{
		Country: "United Kingdom",
		Topics:  []string{"sports", "finance", "world"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Preferences updated successfully", msg)
	svc.Mode.Wait()

	v := svc.Mode.View()
	assert.Equal(t, []string{"sports", "finance", "world"}, sectionKeys(v))
	require.NotNil(t, v.Preferences)
	assert.Equal(t, "gb", v.Preferences.Country)

	msg, err = svc.SavePreferences(context.Background(), model.Preferences{Country: "gb", Topics: []string{"sports"}})
	assert.Error(t, err)
	assert.Equal(t, "Please select exactly 3 topics.", msg)
}

func TestRejectedTokenLogsOut(t *testing.T) {
	svc, stub := loggedIn(t)
	svc.Chat.Open(model.Article{Title: "x", Summary: "y"})

	token, _ := svc.Session.Token()
	stub.Revoke(token)

	svc.Mode.Refresh()
	svc.Mode.Wait()

	assert.False(t, svc.Session.Authenticated())
	assert.Equal(t, feed.Expired, svc.Mode.View().Status)
	_, open := svc.Chat.Current()
	assert.False(t, open)
}

func TestLogout(t *testing.T) {
	svc, _ := loggedIn(t)

	svc.Logout()
	svc.Mode.Wait()

	assert.False(t, svc.Session.Authenticated())
	v := svc.Mode.View()
	assert.Equal(t, feed.Expired, v.Status)
	assert.Empty(t, v.Sections)
}

func TestConsoleSession(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Start())

	report := filepath.Join(t.TempDir(), "feed.docx")
	script := strings.Join([]string{
		"2", "ada", "lovelace",
		"1", "ada", "lovelace",
		"/search rates",
		"/clear",
		"/chat 1",
		"What is being built?",
		"/close",
		"/export " + report,
		"/bogus",
		"/logout",
		"3",
	}, "\n") + "\n"

	var out bytes.Buffer
	err := NewConsole(svc, strings.NewReader(script), &out).Loop(context.Background())
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "User registered successfully")
	assert.Contains(t, got, "Login successful")
	assert.Contains(t, got, "== Your Personalized News ==")
	assert.Contains(t, got, "Showing news for: US | Topics: Technology, Business, Health")
	assert.Contains(t, got, `== Search Results for "rates" ==`)
	assert.Contains(t, got, "Bank Holds Interest Rates")
	assert.Contains(t, got, `[bot] Hello! I'm your news assistant for "Chipmakers Race to Expand Capacity". Ask me anything about this article:`)
	assert.Contains(t, got, "[you] What is being built?")
	assert.Contains(t, got, "[bot] Based on the article:")
	assert.Contains(t, got, "Report generated: "+report)
	assert.Contains(t, got, "Unknown command /bogus")
	assert.Contains(t, got, "Logged out.")

	_, err = os.Stat(report)
	assert.NoError(t, err)
}

func TestConsoleEndOfInput(t *testing.T) {
	svc, _ := newTestService(t)

	var out bytes.Buffer
	err := NewConsole(svc, strings.NewReader(""), &out).Loop(context.Background())
	assert.NoError(t, err)
}

func TestRenderFeedMessages(t *testing.T) {
	var out bytes.Buffer
	RenderFeed(&out, feed.View{Mode: "searching", Term: "zzz", Status: feed.Empty,
		Sections: []model.Section{{Key: model.SearchResultsKey, Articles: []model.Article{}}}})
	assert.Contains(t, out.String(), `No search results found for "zzz".`)

	out.Reset()
	RenderFeed(&out, feed.View{Mode: "personalized", Status: feed.Empty})
	assert.Contains(t, out.String(), MsgNoPersonalized)

	out.Reset()
	RenderFeed(&out, feed.View{Mode: "personalized", Status: feed.Ready,
		Warning:  "Failed to load user preferences. Please set them.",
		Sections: []model.Section{{Key: "finance", Articles: []model.Article{}}, {Key: "world", Articles: []model.Article{{Title: "A"}}}}})
	got := out.String()
	assert.Contains(t, got, "! Failed to load user preferences. Please set them.")
	assert.Contains(t, got, "No news found for 'finance'.")
	assert.Contains(t, got, " 1) A")
}

func TestRenderFeedFetchFailure(t *testing.T) {
	var out bytes.Buffer
	RenderFeed(&out, feed.View{Mode: "personalized", Status: feed.Error, Err: feed.ErrFetchFailed,
		FailedTopics: []string{"technology", "business", "health"}})
	got := out.String()
	assert.Contains(t, got, MsgFetchFailed)
	assert.NotContains(t, got, MsgNoPersonalized)

	out.Reset()
	RenderFeed(&out, feed.View{Mode: "personalized", Status: feed.Ready, FailedTopics: []string{"finance"},
		Sections: []model.Section{{Key: "finance", Articles: []model.Article{}}, {Key: "world", Articles: []model.Article{{Title: "A"}}}}})
	assert.Contains(t, out.String(), "! Could not load: finance")
}

func TestTitleCaseMultibyte(t *testing.T) {
	assert.Equal(t, "Économie", titleCase("économie"))
	assert.Equal(t, "", titleCase(""))
}
