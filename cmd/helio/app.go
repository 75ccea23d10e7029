package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zulandar/heliograph/internal/channel"
	"github.com/zulandar/heliograph/internal/channel/discord"
	"github.com/zulandar/heliograph/internal/channel/slack"
	"github.com/zulandar/heliograph/internal/channel/telegram"
	"github.com/zulandar/heliograph/internal/config"
	"github.com/zulandar/heliograph/internal/history"
	"github.com/zulandar/heliograph/internal/relay"
	"github.com/zulandar/heliograph/internal/session"
)

// app bundles the wired-up subsystems the commands share.
type app struct {
	cfg       *config.Config
	sess      session.Session
	stateRoot string
	adapter   channel.Adapter
	relay     *relay.Relay
	recorder  *history.Recorder
}

// appOpts controls which subsystems buildApp wires.
type appOpts struct {
	root        string // state root override; default ~/.heliograph
	contextPath string // project path; default cwd
	withHistory bool
}

// buildApp loads config, resolves the session and constructs the relay.
// Config without credentials is not an error: forwarding is disabled and
// the relay reports local-only fallback.
func buildApp(opts appOpts) (*app, error) {
	contextPath := opts.contextPath
	if contextPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		contextPath = wd
	}
	contextPath, err := filepath.Abs(contextPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	root := opts.root
	if root == "" {
		root = session.DefaultRoot()
	}

	cfg, err := config.LoadDefault(contextPath, root)
	if err != nil {
		return nil, err
	}
	if cfg.StateDir != "" && opts.root == "" {
		root = cfg.StateDir
	}

	a := &app{
		cfg:       cfg,
		sess:      session.Resolve(root, contextPath),
		stateRoot: root,
	}

	if cfg.Forwarding() {
		a.adapter, err = buildAdapter(cfg, a.sess)
		if err != nil {
			return nil, err
		}
	}

	if opts.withHistory && cfg.HistoryEnabled() {
		db, err := history.Open(cfg.HistoryPath(root))
		if err != nil {
			return nil, err
		}
		a.recorder, err = history.NewRecorder(db)
		if err != nil {
			return nil, err
		}
	}

	var rec relay.Recorder
	if a.recorder != nil {
		rec = a.recorder
	}
	a.relay, err = relay.New(relay.Opts{
		Session:    a.sess,
		Adapter:    a.adapter,
		OperatorID: cfg.OperatorID(),
		Recorder:   rec,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// buildAdapter constructs the channel adapter for the configured platform.
func buildAdapter(cfg *config.Config, sess session.Session) (channel.Adapter, error) {
	downloads := filepath.Join(sess.Dir(), "downloads")

	switch cfg.Platform {
	case "telegram":
		return telegram.New(telegram.AdapterOpts{
			BotToken:    cfg.Telegram.BotToken,
			OperatorID:  cfg.Telegram.OperatorID,
			DownloadDir: downloads,
		})
	case "discord":
		return discord.New(discord.AdapterOpts{
			BotToken:    cfg.Discord.BotToken,
			ChannelID:   cfg.Discord.ChannelID,
			OperatorID:  cfg.Discord.OperatorID,
			DownloadDir: downloads,
		})
	case "slack":
		return slack.New(slack.AdapterOpts{
			AppToken:   cfg.Slack.AppToken,
			BotToken:   cfg.Slack.BotToken,
			ChannelID:  cfg.Slack.ChannelID,
			OperatorID: cfg.Slack.OperatorID,
		})
	}
	return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
}
