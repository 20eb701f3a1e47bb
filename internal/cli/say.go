package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/markov-bot/internal/markov"
)

func init() {
	cmd := &cobra.Command{
		Use:   "say",
		Short: "Generate a sentence",
		Long:  "Generate a sentence from a random starting point. Prints nothing when the bot has not learned anything yet.",
		Args:  cobra.NoArgs,
		Run:   runSay,
	}

	cmd.Flags().IntP("count", "n", 1, "Number of sentences")

	RootCmd.AddCommand(cmd)
}

func runSay(cmd *cobra.Command, args []string) {
	count, _ := cmd.Flags().GetInt("count")

	bot, s, err := openBot(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	for range count {
		text, err := bot.Say(cmd.Context())
		if errors.Is(err, markov.ErrNoData) {
			logger.Warn("nothing learned yet")
			return
		}
		if err != nil {
			exitErr("say", err)
		}
		fmt.Println(text)
	}
}
