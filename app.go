package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"bytenews/internal/app"
	"bytenews/internal/chat"
	"bytenews/internal/config"
	"bytenews/internal/feed"
	"bytenews/internal/geo"
	"bytenews/internal/model"
	"bytenews/internal/prefs"
)

// App struct
type App struct {
	ctx     context.Context
	service *app.Service
}

// NewApp creates a new App application struct
func NewApp() *App {
	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		cfg = config.Default()
	}
	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)

	svc, err := app.NewService(cfg, log)
	if err != nil {
		fmt.Printf("Error initializing service: %v\n", err)
	}
	return &App{service: svc}
}

// startup is called when the app starts. The context is saved
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if a.service == nil {
		return
	}
	a.service.Mode.Board().Subscribe(func(v feed.View) {
		runtime.EventsEmit(a.ctx, "feed:update", toFeedView(v))
	})
	a.service.Session.OnExpire(func() {
		runtime.EventsEmit(a.ctx, "session:expired", prefs.MsgSessionExpired)
	})
	if err := a.service.Start(); err != nil {
		slog.Error("starting service failed", "error", err)
	}
}

func (a *App) shutdown(ctx context.Context) {
	if a.service != nil {
		a.service.Close()
	}
}

// FeedView is the feed as the frontend renders it.
type FeedView struct {
	Heading     string             `json:"heading"`
	Mode        string             `json:"mode"`
	Term        string             `json:"term"`
	Status      string             `json:"status"`
	Message     string             `json:"message"`
	Warning     string             `json:"warning"`
	Sections    []model.Section    `json:"sections"`
	Failed      []string           `json:"failedTopics,omitempty"`
	Preferences *model.Preferences `json:"preferences,omitempty"`
}

func toFeedView(v feed.View) FeedView {
	return FeedView{
		Heading:     app.Heading(v),
		Mode:        v.Mode,
		Term:        v.Term,
		Status:      v.Status.String(),
		Message:     app.StatusMessage(v),
		Warning:     v.Warning,
		Sections:    v.Sections,
		Failed:      v.FailedTopics,
		Preferences: v.Preferences,
	}
}

func (a *App) ready() error {
	if a.service == nil {
		return fmt.Errorf("backend service not initialized")
	}
	return nil
}

func (a *App) Authenticated() bool {
	return a.service != nil && a.service.Session.Authenticated()
}

func (a *App) Login(username, password string) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	return a.service.Login(a.ctx, username, password)
}

func (a *App) Register(username, password string) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	return a.service.Register(a.ctx, username, password)
}

func (a *App) Logout() {
	if a.service != nil {
		a.service.Logout()
	}
}

// Feed returns the current view. Updates also arrive as "feed:update" events.
func (a *App) Feed() (FeedView, error) {
	if err := a.ready(); err != nil {
		return FeedView{}, err
	}
	return toFeedView(a.service.Mode.View()), nil
}

// Search switches to search mode. Blank terms are ignored.
func (a *App) Search(term string) (bool, error) {
	if err := a.ready(); err != nil {
		return false, err
	}
	return a.service.Mode.Submit(term), nil
}

func (a *App) ClearSearch() error {
	if err := a.ready(); err != nil {
		return err
	}
	a.service.Mode.Clear()
	return nil
}

func (a *App) Refresh() error {
	if err := a.ready(); err != nil {
		return err
	}
	a.service.Mode.Refresh()
	return nil
}

// PreferencesForm seeds the preferences page.
type PreferencesForm struct {
	Country   string            `json:"country"`
	Topics    []string          `json:"topics"`
	Warning   string            `json:"warning"`
	Catalog   []string          `json:"catalog"`
	Countries []geo.CountryInfo `json:"countries"`
}

func (a *App) GetPreferences() (PreferencesForm, error) {
	if err := a.ready(); err != nil {
		return PreferencesForm{}, err
	}
	res := a.service.Preferences(a.ctx)
	form := PreferencesForm{
		Country:   model.DefaultPreferences().Country,
		Topics:    []string{},
		Warning:   res.Warning,
		Catalog:   prefs.Topics,
		Countries: geo.Default().Countries(),
	}
	if res.Usable() {
		form.Country = res.Preferences.Country
		form.Topics = res.Preferences.Topics
	}
	return form, nil
}

// ToggleTopic applies the three-topic limit to a checkbox change.
func (a *App) ToggleTopic(selected []string, topic string) ([]string, error) {
	return prefs.Toggle(selected, topic)
}

func (a *App) SavePreferences(p model.Preferences) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	return a.service.SavePreferences(a.ctx, p)
}

func (a *App) OpenChat(article model.Article) (chat.Conversation, error) {
	if err := a.ready(); err != nil {
		return chat.Conversation{}, err
	}
	return a.service.Chat.Open(article), nil
}

// AskChat blocks until the answer (or the apology) is in. It reports false
// when the question was not sent.
func (a *App) AskChat(question string) (chat.Conversation, bool) {
	if a.service == nil {
		return chat.Conversation{}, false
	}
	return a.service.Chat.Ask(a.ctx, question)
}

func (a *App) CloseChat() {
	if a.service != nil {
		a.service.Chat.Close()
	}
}

func (a *App) SaveFeedReport() (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	path, err := a.saveDialog("Save News Report", fmt.Sprintf("bytenews_%s.docx", time.Now().Format("20060102")))
	if err != nil || path == "" {
		return "", err
	}
	if err := a.service.ExportFeed(path); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) SaveChatReport() (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	path, err := a.saveDialog("Save Chat Transcript", "chat_transcript.docx")
	if err != nil || path == "" {
		return "", err
	}
	if err := a.service.ExportChat(path); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) saveDialog(title, filename string) (string, error) {
	return runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		DefaultFilename: filename,
		Title:           title,
		Filters: []runtime.FileFilter{
			{DisplayName: "Word Documents (*.docx)", Pattern: "*.docx"},
		},
	})
}
