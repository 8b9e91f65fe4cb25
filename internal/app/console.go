package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bytenews/internal/model"
	"bytenews/internal/prefs"
)

const help = `Commands:
  <text> or /search <text>  search all news
  /clear                    back to your personalized news
  /refresh                  reload the current view
  /prefs                    edit country and topics
  /chat <n>                 chat about article n
  /export [file.docx]       save the current view as a Word document
  /logout                   log out
  /quit                     exit`

// Console is the interactive terminal driver.
type Console struct {
	svc *Service
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(svc *Service, in io.Reader, out io.Writer) *Console {
	return &Console{svc: svc, in: bufio.NewReader(in), out: out}
}

// Loop runs until /quit or end of input.
func (c *Console) Loop(ctx context.Context) error {
	if c.svc.Session.Authenticated() {
		c.show()
	}
	for ctx.Err() == nil {
		if !c.svc.Session.Authenticated() {
			done, err := c.authenticate(ctx)
			if err != nil || done {
				return err
			}
			c.show()
			fmt.Fprintln(c.out, "Type /help for commands.")
		}

		fmt.Fprint(c.out, "> ")
		line, err := c.readLine()
		if err != nil {
			return ignoreEOF(err)
		}
		if quit := c.handle(ctx, line); quit {
			return nil
		}
	}
	return nil
}

func (c *Console) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		c.show()
	case "/help":
		fmt.Fprintln(c.out, help)
	case "/search":
		c.search(arg)
	case "/clear":
		c.svc.Mode.Clear()
		c.show()
	case "/refresh":
		c.svc.Mode.Refresh()
		c.show()
	case "/prefs":
		c.editPreferences(ctx)
	case "/chat":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(c.out, "Usage: /chat <article number>")
			return false
		}
		c.chat(ctx, n)
	case "/export":
		c.exportFeed(arg)
	case "/logout":
		c.svc.Logout()
		fmt.Fprintln(c.out, "Logged out.")
	case "/quit", "/exit":
		return true
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintf(c.out, "Unknown command %s. Type /help for commands.\n", cmd)
			return false
		}
		c.search(line)
	}
	return false
}

func (c *Console) show() {
	c.svc.Mode.Wait()
	RenderFeed(c.out, c.svc.Mode.View())
}

func (c *Console) search(term string) {
	if !c.svc.Mode.Submit(term) {
		fmt.Fprintln(c.out, "Enter a search term.")
		return
	}
	c.show()
}

// authenticate reports done when the user chose to quit.
func (c *Console) authenticate(ctx context.Context) (bool, error) {
	for {
		fmt.Fprintln(c.out, "\n1) Log in")
		fmt.Fprintln(c.out, "2) Register")
		fmt.Fprintln(c.out, "3) Quit")
		fmt.Fprint(c.out, "> ")

		choice, err := c.readLine()
		if err != nil {
			return true, ignoreEOF(err)
		}

		switch choice {
		case "1", "2":
			username, password, err := c.credentials()
			if err != nil {
				return true, ignoreEOF(err)
			}
			if choice == "2" {
				msg, _ := c.svc.Register(ctx, username, password)
				fmt.Fprintln(c.out, msg)
				continue
			}
			msg, err := c.svc.Login(ctx, username, password)
			fmt.Fprintln(c.out, msg)
			if err == nil {
				return false, nil
			}
		case "3", "/quit":
			return true, nil
		default:
			fmt.Fprintln(c.out, "Invalid choice. Please select 1-3.")
		}
	}
}

func (c *Console) credentials() (string, string, error) {
	fmt.Fprint(c.out, "Username: ")
	username, err := c.readLine()
	if err != nil {
		return "", "", err
	}
	fmt.Fprint(c.out, "Password: ")
	password, err := c.readLine()
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

func (c *Console) editPreferences(ctx context.Context) {
	res := c.svc.Preferences(ctx)
	if res.Status == prefs.AuthExpired {
		fmt.Fprintln(c.out, prefs.MsgSessionExpired)
		return
	}
	current := model.DefaultPreferences()
	if res.Usable() {
		current = res.Preferences.Clone()
	} else {
		current.Topics = nil
	}
	if res.Warning != "" {
		fmt.Fprintln(c.out, "!", res.Warning)
	}

	fmt.Fprintf(c.out, "Country [%s]: ", current.Country)
	country, err := c.readLine()
	if err != nil {
		return
	}
	if country != "" {
		current.Country = country
	}

	selected := current.Topics
	for {
		fmt.Fprintln(c.out, "\nTopics (select exactly 3):")
		for i, t := range prefs.Topics {
			mark := " "
			if contains(selected, t) {
				mark = "x"
			}
			fmt.Fprintf(c.out, "  %d) [%s] %s\n", i+1, mark, titleCase(t))
		}
		fmt.Fprint(c.out, "Toggle a topic by number, blank line to save: ")

		line, err := c.readLine()
		if err != nil {
			return
		}
		if line == "" {
			break
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(prefs.Topics) {
			fmt.Fprintf(c.out, "Invalid choice. Please select 1-%d.\n", len(prefs.Topics))
			continue
		}
		next, err := prefs.Toggle(selected, prefs.Topics[n-1])
		if err != nil {
			fmt.Fprintln(c.out, err)
			continue
		}
		selected = next
	}

	current.Topics = selected
	msg, err := c.svc.SavePreferences(ctx, current)
	fmt.Fprintln(c.out, msg)
	if err == nil {
		c.show()
	}
}

func (c *Console) chat(ctx context.Context, n int) {
	article, ok := c.svc.Article(n)
	if !ok {
		fmt.Fprintf(c.out, "No article number %d.\n", n)
		return
	}

	conv := c.svc.Chat.Open(article)
	defer c.svc.Chat.Close()

	fmt.Fprintf(c.out, "\nChat about: %s\n", shorten(article.Title, 40))
	for _, m := range conv.Messages {
		printMessage(c.out, m)
	}
	fmt.Fprintln(c.out, "Ask a question about this article. /export saves the transcript, /close ends the chat.")

	for {
		fmt.Fprint(c.out, "chat> ")
		line, err := c.readLine()
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/close", "/quit":
			return
		case "/export":
			c.exportChat(strings.TrimSpace(arg))
			continue
		}

		fmt.Fprintln(c.out, "Thinking...")
		conv, ok := c.svc.Chat.Ask(ctx, line)
		if ok {
			printMessage(c.out, conv.Messages[len(conv.Messages)-1])
		}
		if !c.svc.Session.Authenticated() {
			fmt.Fprintln(c.out, prefs.MsgSessionExpired)
			return
		}
	}
}

func (c *Console) exportFeed(path string) {
	if path == "" {
		path = fmt.Sprintf("bytenews_%s.docx", time.Now().Format("20060102_150405"))
	}
	c.svc.Mode.Wait()
	if err := c.svc.ExportFeed(path); err != nil {
		fmt.Fprintln(c.out, "Error generating report:", err)
		return
	}
	fmt.Fprintln(c.out, "Report generated:", path)
}

func (c *Console) exportChat(path string) {
	if path == "" {
		path = fmt.Sprintf("bytenews_chat_%s.docx", time.Now().Format("20060102_150405"))
	}
	if err := c.svc.ExportChat(path); err != nil {
		fmt.Fprintln(c.out, "Error generating report:", err)
		return
	}
	fmt.Fprintln(c.out, "Transcript saved:", path)
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}

func printMessage(w io.Writer, m model.Message) {
	who := "bot"
	if m.Role == model.RoleUser {
		who = "you"
	}
	fmt.Fprintf(w, "[%s] %s\n", who, m.Text)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
