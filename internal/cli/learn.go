package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cmd := &cobra.Command{
		Use:   "learn [text]",
		Short: "Learn utterances",
		Long: "Learn utterances. A positional arg is learned as a single utterance;\n" +
			"with --file or piped stdin every non-blank line is one utterance.",
		Run: runLearn,
	}

	cmd.Flags().String("file", "", "Corpus file, one utterance per line")

	RootCmd.AddCommand(cmd)
}

func runLearn(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")

	var src io.Reader
	switch {
	case len(args) > 0:
		src = strings.NewReader(strings.Join(args, " "))
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			exitErr("open corpus", err)
		}
		defer f.Close()
		src = f
	case stdinPiped():
		src = os.Stdin
	default:
		exitErr("learn", fmt.Errorf("text is required (positional arg, --file or stdin)"))
	}

	bot, s, err := openBot(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	learned := 0
	err = eachLine(src, func(line string) error {
		if err := bot.Learn(cmd.Context(), line); err != nil {
			return err
		}
		learned++
		return nil
	})
	if err != nil {
		exitErr("learn", err)
	}
	logger.Info("learned", zap.Int("utterances", learned))

	fmt.Printf(`{"ok":true,"learned":%d}`+"\n", learned)
}
