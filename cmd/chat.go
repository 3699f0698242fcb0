package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gitlab.com/yelinaung/finance-concierge/internal/cli"
)

var (
	flagChatServer  string
	flagChatUser    string
	flagChatTimeout time.Duration
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the finance agent of a running server",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&flagChatServer, "server", "s", "http://localhost:8080", "Base URL of the API server")
	chatCmd.Flags().StringVarP(&flagChatUser, "user", "u", "", "Username or email (prompted when empty)")
	chatCmd.Flags().DurationVar(&flagChatTimeout, "timeout", 2*time.Minute, "Per-request timeout")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	identifier := strings.TrimSpace(flagChatUser)
	if identifier == "" {
		fmt.Fprint(out, "Username or email: ")
		line, err := readLine(in)
		if err != nil {
			return err
		}
		identifier = line
	}

	fmt.Fprint(out, "Password: ")
	password, err := readPassword(in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	client := cli.NewClient(flagChatServer, flagChatTimeout)
	if err := client.Login(ctx, identifier, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return cli.Loop(ctx, in, out, client)
}

func readPassword(in *bufio.Reader) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
