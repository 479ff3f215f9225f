package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/config"
	"github.com/zhouzirui/profile-assistant/backend/internal/logger"
	modelchat "github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/responder"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
)

const (
	cliName      = "chatcli"
	replyTimeout = 10 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   cliName + " [message]",
		Short: "Portfolio assistant in the terminal",
		Long:  "交互式作品集助手，命令以 / 开头，输入 /help 查看",
		Args:  cobra.ArbitraryArgs,
		RunE:  runInteractive,
	}

	rootCmd.PersistentFlags().StringP("session", "s", "", "会话 ID，留空则新建 (UUID)")
	rootCmd.PersistentFlags().StringP("personality", "p", "", "professional | friendly | casual")
	rootCmd.PersistentFlags().Int("speed", 0, "回复速度 1-3")
	rootCmd.PersistentFlags().Bool("voice", false, "朗读回复 (需配置 SPEECH_TTS_COMMAND)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "quick",
		Short: "列出推荐问题",
		Run: func(cmd *cobra.Command, args []string) {
			for i, q := range responder.QuickQuestions() {
				fmt.Printf("%d. %s (%s)\n", i+1, q.Text, q.Category)
			}
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	session *chat.Session
	lastID  int
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// keep the terminal clean unless a log file is configured
	logCfg := cfg.Log.Logger()
	if logCfg.File == "" {
		logCfg.Level = "error"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = log.Sync() }()

	kb := profile.Seed()
	if cfg.Profile.File != "" {
		if kb, err = profile.LoadFile(cfg.Profile.File); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
	}

	store, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	settings, err := cfg.Session.Settings()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &settings); err != nil {
		return err
	}

	svc := chat.NewService(
		profile.NewMemoryStore(kb),
		responder.NewGenerator(responder.NewTemplateStore()),
		store,
		chat.Config{
			Timing:    chat.Timing{BaseDelay: cfg.Session.BaseDelay, SpeedFactor: cfg.Session.SpeedFactor},
			Settings:  settings,
			KeyPrefix: cfg.Storage.KeyPrefix,
		},
		log,
		chat.WithSynthesizer(speech.NewCommandSynthesizer(cfg.Speech.TTSCommand)),
	)
	defer svc.Shutdown()

	sessionID, _ := cmd.Flags().GetString("session")
	session, err := svc.CreateSession(ctx, sessionID, &settings)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	log.Info("cli session ready", zap.String("session_id", session.ID()))

	c := &cli{session: session}
	fmt.Printf("\033[90msession %s · %d earlier questions · /help for commands\033[0m\n", session.ID(), len(session.History()))
	c.printNew()

	if len(args) > 0 {
		if err := c.ask(ctx, strings.Join(args, " ")); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\033[36myou›\033[0m ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil {
				fmt.Printf("\033[31m%v\033[0m\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := c.ask(ctx, line); err != nil {
			fmt.Printf("\033[31m%v\033[0m\n", err)
		}
	}
}

func applyFlags(cmd *cobra.Command, settings *modelchat.Settings) error {
	if p, _ := cmd.Flags().GetString("personality"); p != "" {
		parsed, err := modelchat.ParsePersonality(p)
		if err != nil {
			return err
		}
		settings.Personality = parsed
	}
	if speed, _ := cmd.Flags().GetInt("speed"); speed != 0 {
		settings.ResponseSpeed = speed
	}
	if cmd.Flags().Changed("voice") {
		settings.VoiceEnabled, _ = cmd.Flags().GetBool("voice")
	}
	return settings.Validate()
}

// ask submits text and blocks until the reply lands.
func (c *cli) ask(ctx context.Context, text string) error {
	events, cancel := c.session.Subscribe()
	defer cancel()

	msg, err := c.session.Submit(ctx, text)
	if err != nil {
		return err
	}
	c.lastID = msg.ID

	timeout := time.After(replyTimeout)
	fmt.Print("\033[90m…\033[0m")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			fmt.Print("\r\033[2K")
			return fmt.Errorf("no reply within %s", replyTimeout)
		case evt, open := <-events:
			if !open {
				return chat.ErrSessionClosed
			}
			if evt.Type == chat.EventSnapshot && evt.Snapshot.State == chat.StateIdle {
				fmt.Print("\r\033[2K")
				c.printNew()
				return nil
			}
		}
	}
}

func (c *cli) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name, arg := fields[0], ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Println("/clear  /rate up|down  /feedback  /export [file]  /copy  /listen\n/personality <p>  /speed <1-3>  /voice on|off  /emoji on|off  /quick  /quit")
	case "/clear":
		c.session.Clear(ctx)
		c.lastID = 0
		c.printNew()
	case "/rate":
		kind := modelchat.FeedbackPositive
		if arg == "down" || arg == "negative" {
			kind = modelchat.FeedbackNegative
		}
		if _, err := c.session.Rate(ctx, kind); err != nil {
			return false, err
		}
		fmt.Println("thanks for the feedback")
	case "/feedback":
		for _, f := range c.session.Feedback(ctx) {
			fmt.Printf("[%s] %s → %.60s\n", f.Type, f.Message, f.Response)
		}
	case "/export":
		body, err := c.session.Export()
		if err != nil {
			return false, err
		}
		file := arg
		if file == "" {
			file = c.session.ExportFileName()
		}
		if err := os.WriteFile(file, body, 0o644); err != nil {
			return false, err
		}
		fmt.Printf("exported to %s\n", file)
	case "/copy":
		fmt.Println(c.session.CopyTranscript())
		c.printNew()
	case "/listen":
		// terminals have no microphone capture
		if err := c.session.Listen(ctx, speech.Unsupported{}); err != nil {
			return false, err
		}
		c.printNew()
	case "/quick":
		for i, q := range responder.QuickQuestions() {
			fmt.Printf("%d. %s\n", i+1, q.Text)
		}
	case "/personality", "/speed", "/voice", "/emoji":
		return false, c.updateSetting(name, arg)
	default:
		if n, err := strconv.Atoi(strings.TrimPrefix(name, "/")); err == nil {
			qs := responder.QuickQuestions()
			if n >= 1 && n <= len(qs) {
				return false, c.ask(ctx, qs[n-1].Text)
			}
		}
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

func (c *cli) updateSetting(name, arg string) error {
	settings := c.session.Settings()
	switch name {
	case "/personality":
		settings.Personality = modelchat.Personality(arg)
	case "/speed":
		speed, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("speed must be 1-3")
		}
		settings.ResponseSpeed = speed
	case "/voice":
		settings.VoiceEnabled = arg == "on"
	case "/emoji":
		settings.EmojiMode = arg == "on"
	}
	updated, err := c.session.UpdateSettings(settings)
	if err != nil {
		return err
	}
	fmt.Printf("personality=%s speed=%d voice=%t emoji=%t\n", updated.Personality, updated.ResponseSpeed, updated.VoiceEnabled, updated.EmojiMode)
	return nil
}

func (c *cli) printNew() {
	for _, msg := range c.session.Messages() {
		if msg.ID <= c.lastID {
			continue
		}
		c.lastID = msg.ID
		if msg.Sender == modelchat.SenderUser {
			continue
		}
		text := msg.Text
		if msg.Emoji != "" {
			text = msg.Emoji + " " + text
		}
		fmt.Printf("\033[32mbot›\033[0m %s \033[90m%s\033[0m\n", text, msg.Time)
	}
}
