package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const prompt = "> "

var (
	colorAccent = lipgloss.Color("#3AA99F")
	colorMuted  = lipgloss.Color("#6F6E69")
	colorRed    = lipgloss.Color("#D14D41")

	agentStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(colorAccent)

	noticeStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)
)

// Sender is the chat backend the loop talks to. *Client implements it.
type Sender interface {
	SendMessage(ctx context.Context, message string) (string, error)
	Reset(ctx context.Context) (string, error)
}

// Loop reads lines from in until EOF, exit or quit, relaying each to s.
// Failed calls are reported and the loop continues.
func Loop(ctx context.Context, in io.Reader, out io.Writer, s Sender) error {
	fmt.Fprintln(out, noticeStyle.Render("Type a message. /reset starts over, exit quits."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, noticeStyle.Render("Bye."))
			return nil
		case "/reset":
			msg, err := s.Reset(ctx)
			if err != nil {
				printError(out, err)
				continue
			}
			fmt.Fprintln(out, noticeStyle.Render(msg))
			continue
		}

		reply, err := s.SendMessage(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			printError(out, err)
			continue
		}
		fmt.Fprintln(out, agentStyle.Render(reply))
	}
}

func printError(out io.Writer, err error) {
	fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
}
