package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gingfrederik/docx"

	"bytenews/internal/model"
)

const rule = "--------------------------------------------------"

var ErrNothingToExport = errors.New("nothing to export")

// Feed writes the displayed sections to a .docx file at path.
func Feed(path, heading string, sections []model.Section, at time.Time) error {
	if len(sections) == 0 {
		return ErrNothingToExport
	}
	f := docx.NewFile()

	run := f.AddParagraph().AddText(heading)
	run.Size(20)
	run = f.AddParagraph().AddText("Generated " + at.Format("2006-01-02 15:04"))
	run.Size(10)
	run.Color("808080")
	f.AddParagraph() // Spacer

	for _, s := range sections {
		run = f.AddParagraph().AddText(s.Title())
		run.Size(18)

		if len(s.Articles) == 0 {
			f.AddParagraph().AddText("No articles.")
		}
		for _, a := range s.Articles {
			run = f.AddParagraph().AddText(a.Title)
			run.Size(14)

			if a.Source != "" {
				run = f.AddParagraph().AddText("Source: " + a.Source)
				run.Size(10)
				run.Color("808080")
			}
			if a.URL != "" {
				run = f.AddParagraph().AddText(a.URL)
				run.Size(10)
				run.Color("0000FF")
			}

			body := a.Summary
			if body == "" {
				body = a.Description
			}
			for _, txt := range strings.Split(body, "\n\n") {
				if txt = strings.TrimSpace(txt); txt != "" {
					f.AddParagraph().AddText(txt)
				}
			}
			f.AddParagraph() // Spacer
		}
		f.AddParagraph().AddText(rule)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save feed report: %w", err)
	}
	return nil
}

// Conversation writes a chat transcript about article to path.
func Conversation(path string, article model.Article, messages []model.Message) error {
	if len(messages) == 0 {
		return ErrNothingToExport
	}
	f := docx.NewFile()

	run := f.AddParagraph().AddText("Chat about: " + article.Title)
	run.Size(20)
	if article.URL != "" {
		run = f.AddParagraph().AddText(article.URL)
		run.Size(10)
		run.Color("0000FF")
	}
	f.AddParagraph() // Spacer
	f.AddParagraph().AddText(rule)

	for _, m := range messages {
		p := f.AddParagraph()
		speaker := "Assistant"
		color := "008000"
		if m.Role == model.RoleUser {
			speaker = "You"
			color = "000080"
		}
		run = p.AddText(speaker + ": ")
		run.Color(color)
		p.AddText(m.Text)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save chat report: %w", err)
	}
	return nil
}
