package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/markov-bot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the chain as JSON",
		Long:  "Export every weighted transition as JSON. The output can be loaded into another store with import.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, ok := s.(store.Exporter)
	if !ok {
		exitErr("export", fmt.Errorf("%s backend cannot export", cfg.Store.Backend))
	}
	entries, err := exp.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}
	if entries == nil {
		entries = []store.Entry{}
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
