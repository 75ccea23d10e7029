package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/zulandar/heliograph/internal/config"
	"github.com/zulandar/heliograph/internal/session"
)

func newPairCmd() *cobra.Command {
	var root, platform string

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Interactively configure the remote channel",
		Long: "Prompts for bot credentials and the operator identity, then writes\n" +
			"<state-root>/config.yaml. Tokens are read without echo.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPair(cmd, root, platform)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&platform, "platform", "", "chat platform: telegram, discord or slack")
	return cmd
}

func runPair(cmd *cobra.Command, root, platform string) error {
	if root == "" {
		root = session.DefaultRoot()
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if platform == "" {
		v, err := promptLine(in, out, "Platform (telegram/discord/slack) [telegram]: ")
		if err != nil {
			return err
		}
		platform = v
		if platform == "" {
			platform = "telegram"
		}
	}

	cfg := &config.Config{Platform: platform}
	var err error
	switch platform {
	case "telegram":
		cfg.Telegram.BotToken, err = promptSecret(in, out, "Bot token: ")
		if err != nil {
			return err
		}
		cfg.Telegram.OperatorID, err = promptLine(in, out, "Operator Telegram user ID: ")
	case "discord":
		cfg.Discord.BotToken, err = promptSecret(in, out, "Bot token: ")
		if err != nil {
			return err
		}
		cfg.Discord.OperatorID, err = promptLine(in, out, "Operator Discord user ID: ")
		if err != nil {
			return err
		}
		cfg.Discord.ChannelID, err = promptLine(in, out, "Channel ID (empty for DM only): ")
	case "slack":
		cfg.Slack.AppToken, err = promptSecret(in, out, "App-level token (xapp-...): ")
		if err != nil {
			return err
		}
		cfg.Slack.BotToken, err = promptSecret(in, out, "Bot token (xoxb-...): ")
		if err != nil {
			return err
		}
		cfg.Slack.OperatorID, err = promptLine(in, out, "Operator Slack user ID: ")
		if err != nil {
			return err
		}
		cfg.Slack.ChannelID, err = promptLine(in, out, "Channel ID (empty for DM only): ")
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}
	if err != nil {
		return err
	}

	if err := writePairConfig(root, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s. Run `helio doctor` to verify the setup.\n",
		filepath.Join(root, "config.yaml"))
	return nil
}

// promptLine reads one trimmed line of visible input.
func promptLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echo when stdin is a terminal, falling
// back to visible input when it is not (piped setup scripts, tests).
func promptSecret(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(in, out, label)
	}
	fmt.Fprint(out, label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// writePairConfig marshals cfg to <root>/config.yaml with owner-only
// permissions; the file holds live credentials.
func writePairConfig(root string, cfg *config.Config) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create state root: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
