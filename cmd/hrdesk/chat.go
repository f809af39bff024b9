package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/client"
	"github.com/gosuda/hrdesk/internal/signature"
)

func newChatCmd() *cobra.Command {
	var (
		baseURL        string
		employeeID     string
		token          string
		conversationID string
		showHistory    bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if employeeID == "" {
				return errors.New("--employee is required")
			}
			if token == "" {
				token = os.Getenv("HRDESK_TOKEN")
			}

			api := client.New(baseURL, client.WithToken(token))
			return runChat(cmd.Context(), api, employeeID, conversationID, showHistory, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Server base URL")
	cmd.Flags().StringVar(&employeeID, "employee", "", "Employee id to chat as")
	cmd.Flags().StringVar(&token, "token", "", "Access token (defaults to HRDESK_TOKEN)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Continue this conversation instead of today's")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Print today's messages before prompting")

	return cmd
}

func runChat(ctx context.Context, api *client.Client, employeeID, conversationID string, showHistory bool, in io.Reader, out io.Writer) error {
	lines := bufio.NewScanner(in)

	if showHistory {
		h, err := api.History(ctx, employeeID)
		if err != nil {
			return err
		}
		for _, m := range h.Messages {
			who := "assistant"
			if m.IsUser {
				who = "you"
			}
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04"), who, m.Text)
		}
	}

	var opts []client.ControllerOption
	if conversationID != "" {
		opts = append(opts, client.WithConversationID(conversationID))
	}

	// Chunks carry the accumulated text; print only what is new.
	var shown string
	render := func(text string) {
		if strings.HasPrefix(text, shown) {
			fmt.Fprint(out, text[len(shown):])
		} else {
			fmt.Fprint(out, "\n"+text)
		}
		shown = text
	}
	opts = append(opts, client.WithChunkHandler(render))

	ctrl := client.NewController(api, employeeID, &terminalPrompter{lines: lines, out: out}, opts...)

	for {
		fmt.Fprint(out, "> ")
		if !lines.Scan() {
			fmt.Fprintln(out)
			return lines.Err()
		}
		msg := strings.TrimSpace(lines.Text())
		if msg == "" {
			continue
		}
		if msg == "/quit" || msg == "/exit" {
			return nil
		}

		shown = ""
		resp, err := ctrl.Send(ctx, msg)
		if err != nil {
			fmt.Fprintf(out, "\nerror: %v\n", err)
			continue
		}
		render(resp.Answer)
		fmt.Fprintln(out)
	}
}

// terminalPrompter asks for a signature by typing the full name. An empty
// name declines the document.
type terminalPrompter struct {
	lines *bufio.Scanner
	out   io.Writer
}

func (p *terminalPrompter) PromptSignature(_ context.Context, doc chat.DocumentToSign) (signature.Outcome, error) {
	fmt.Fprintf(p.out, "\n--- %s (v%d) ---\n%s\n---\n", doc.Title, doc.Version, doc.Content)
	fmt.Fprint(p.out, "Type your full name to sign, or leave empty to decline: ")

	pad := signature.NewPad(0, 0)
	if !p.lines.Scan() {
		if err := p.lines.Err(); err != nil {
			return signature.Outcome{}, fmt.Errorf("read signature: %w", err)
		}
		return pad.Cancel()
	}

	name := strings.TrimSpace(p.lines.Text())
	if name == "" {
		return pad.Cancel()
	}
	if err := signature.Scribble(pad, name); err != nil {
		return signature.Outcome{}, err
	}
	return pad.Confirm()
}
