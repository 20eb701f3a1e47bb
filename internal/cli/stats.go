package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show chain statistics",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("backend:      %s\n", stats.Backend)
		fmt.Printf("order:        %d\n", stats.Order)
		if stats.DBPath != "" {
			fmt.Printf("db:           %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		}
		fmt.Printf("words:        %d\n", stats.Words)
		fmt.Printf("states:       %d\n", stats.States)
		fmt.Printf("transitions:  %d\n", stats.Transitions)
		fmt.Printf("total weight: %d\n", stats.TotalWeight)
		return
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
