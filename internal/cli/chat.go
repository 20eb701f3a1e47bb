package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/markov-bot/internal/chat"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat on stdin/stdout",
		Long: "Read messages from stdin, one per line, and learn every one. Lines starting with\n" +
			"@<name> always get a reply; other lines get one with probability --verbosity.",
		Args: cobra.NoArgs,
		Run:  runChat,
	}

	cmd.Flags().String("name", "", "Name the bot answers to (default from config)")
	cmd.Flags().Float64("verbosity", -1, "Chance of replying to a line without a mention, in [0, 1)")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	chatCfg := cfg.Chat
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		chatCfg.Name = name
	}
	if v, _ := cmd.Flags().GetFloat64("verbosity"); v >= 0 {
		if v >= 1 {
			exitErr("chat", fmt.Errorf("verbosity must be in range 0..1, got %v", v))
		}
		chatCfg.Verbosity = v
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second signal kills the process.
	context.AfterFunc(ctx, stop)

	bot, s, err := openBot(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	logger.Info("chat started",
		zap.String("name", chatCfg.Name),
		zap.Float64("verbosity", chatCfg.Verbosity))

	svc := chat.NewService(bot, chatCfg, chat.WithServiceLogger(logger.Named("chat")))
	if err := svc.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		exitErr("chat", err)
	}
	logger.Info("chat stopped")
}
