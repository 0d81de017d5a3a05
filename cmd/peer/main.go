package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	clientconfig "github.com/vovakirdan/babyboom-server/internal/client/config"
	"github.com/vovakirdan/babyboom-server/internal/client/peer"
	"github.com/vovakirdan/babyboom-server/internal/client/signaling"
	applog "github.com/vovakirdan/babyboom-server/internal/log"
	"github.com/vovakirdan/babyboom-server/internal/negotiation"
	"github.com/vovakirdan/babyboom-server/internal/proto"
	"github.com/vovakirdan/babyboom-server/internal/retry"
)

const dataChannelLabel = "babyboom"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		peer.NewPrinter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}

type flags struct {
	configPath   string
	serverURL    string
	nickname     string
	age          string
	gender       string
	country      string
	autoContinue bool
	logLevel     string
	writeConfig  bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "babyboom-peer",
		Short:         "Talk to a random stranger from the terminal",
		Long:          "babyboom-peer joins a babyboom coordinator, waits for a partner and chats with them while negotiating a direct peer connection.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := clientconfig.Load(f.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, f)

			if f.writeConfig && f.configPath != "" {
				if err := clientconfig.Save(f.configPath, cfg); err != nil {
					return err
				}
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "path to peer.toml")
	fl.StringVarP(&f.serverURL, "server", "s", "", "coordinator websocket URL")
	fl.StringVarP(&f.nickname, "nickname", "n", "", "nickname shown to partners")
	fl.StringVar(&f.age, "age", "", "age shown to partners")
	fl.StringVar(&f.gender, "gender", "", "gender shown to partners")
	fl.StringVar(&f.country, "country", "", "country shown to partners")
	fl.BoolVarP(&f.autoContinue, "auto", "a", false, "look for a new partner automatically when a chat ends")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fl.BoolVar(&f.writeConfig, "save", false, "write the resulting settings back to --config")

	return cmd
}

func applyFlags(cmd *cobra.Command, cfg *clientconfig.Config, f flags) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("server", &cfg.ServerURL, f.serverURL)
	set("nickname", &cfg.Profile.Nickname, f.nickname)
	set("age", &cfg.Profile.Age, f.age)
	set("gender", &cfg.Profile.Gender, f.gender)
	set("country", &cfg.Profile.Country, f.country)
	set("log-level", &cfg.LogLevel, f.logLevel)
	if cmd.Flags().Changed("auto") {
		cfg.AutoContinue = f.autoContinue
	}
}

func run(parent context.Context, cfg clientconfig.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := applog.NewWithWriter(os.Stderr, cfg.LogLevel)
	out := peer.NewPrinter(os.Stdout)

	client := signaling.NewClient(cfg.ServerURL)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerURL, err)
	}
	defer client.Close()

	out.Title("babyboom")
	out.Info("Commands: /next, /report <reason>, /camera on|off, /quit")

	wait := retry.DefaultConfig()
	if cfg.Negotiation.Wait.Duration > 0 {
		wait.Timeout = cfg.Negotiation.Wait.Duration
	}

	runner := peer.NewRunner(client, peer.Options{
		Profile: proto.Profile{
			Nickname: cfg.Profile.Nickname,
			Age:      proto.FlexString(cfg.Profile.Age),
			Gender:   cfg.Profile.Gender,
			Country:  cfg.Profile.Country,
		},
		AutoContinue:   cfg.AutoContinue,
		Wait:           wait,
		TypingDebounce: cfg.Negotiation.TypingDebounce.Duration,
		Printer:        out,
		Logger:         logger,
		NewTransport: func(role negotiation.Role) (negotiation.Transport, error) {
			pc := negotiation.PionConfig{ICEServers: cfg.ICEServers}
			if role == negotiation.RoleInitiator {
				pc.DataChannel = dataChannelLabel
			}
			t, err := negotiation.NewPionTransport(pc)
			if err != nil {
				return nil, err
			}
			t.OnDataChannel(func(dc *webrtc.DataChannel) {
				dc.OnOpen(func() { out.Success("Direct connection established.") })
			})
			return t, nil
		},
	})

	err := runner.Run(ctx, os.Stdin)
	if errors.Is(err, peer.ErrDisconnected) {
		return fmt.Errorf("lost connection to %s", cfg.ServerURL)
	}
	return err
}
