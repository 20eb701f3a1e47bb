package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/markov-bot/internal/markov"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reply [text]",
		Short: "Reply to a message",
		Long: "Generate a reply seeded by a word of the message. Text can be a positional arg or piped via stdin.\n" +
			"With --learn the message is learned before replying, as the chat loop does.",
		Run: runReply,
	}

	cmd.Flags().Bool("learn", false, "Learn the message before replying")

	RootCmd.AddCommand(cmd)
}

func runReply(cmd *cobra.Command, args []string) {
	learn, _ := cmd.Flags().GetBool("learn")

	text, err := readText(args)
	if err != nil {
		exitErr("reply", err)
	}

	bot, s, err := openBot(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if learn {
		if err := bot.Learn(cmd.Context(), text); err != nil {
			exitErr("learn", err)
		}
	}

	reply, err := bot.Reply(cmd.Context(), text)
	if errors.Is(err, markov.ErrNoData) {
		logger.Warn("nothing learned yet")
		return
	}
	if err != nil {
		exitErr("reply", err)
	}
	fmt.Println(reply)
}
