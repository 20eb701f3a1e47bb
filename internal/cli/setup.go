package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare the store",
		Long: "Create the store schema for the configured order. Persistent stores remember\n" +
			"their order and refuse to open with a different one.",
		Args: cobra.NoArgs,
		Run:  runSetup,
	}

	cmd.Flags().Bool("save-config", false, "Write the resolved configuration to the config file")

	RootCmd.AddCommand(cmd)
}

func runSetup(cmd *cobra.Command, args []string) {
	save, _ := cmd.Flags().GetBool("save-config")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	out := map[string]any{
		"ok":      true,
		"backend": cfg.Store.Backend,
		"order":   cfg.Order,
	}
	if cfg.Store.Backend == "sqlite" {
		out["db_path"] = cfg.Store.Path
	}
	if save {
		path := getConfigPath()
		if err := cfg.Save(path); err != nil {
			exitErr("save config", err)
		}
		out["config"] = path
	}

	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
