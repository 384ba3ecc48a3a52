package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/rewind/internal/cli"
	"github.com/aretw0/rewind/internal/config"
	"github.com/aretw0/rewind/pkg/ports"
	"github.com/spf13/cobra"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect stored checkpoints (time travel)",
	Long:  `List and inspect checkpoints written by previous runs against a shared store.`,
}

var checkpointsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all checkpoint IDs in insertion order",
	Run: func(cmd *cobra.Command, args []string) {
		store := getCheckpointStore(cmd)
		ids, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing checkpoints: %v\n", err)
			os.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No checkpoints found.")
			return
		}

		fmt.Println("Checkpoints:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
	},
}

var checkpointsInspectCmd = &cobra.Command{
	Use:   "inspect <checkpoint-id>",
	Short: "Print the state snapshot stored under a checkpoint",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		store := getCheckpointStore(cmd)

		state, err := store.Load(cmd.Context(), id)
		if err != nil {
			fmt.Printf("Error loading checkpoint '%s': %v\n", id, err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling state: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(checkpointsLsCmd)
	checkpointsCmd.AddCommand(checkpointsInspectCmd)
}

func getCheckpointStore(cmd *cobra.Command) ports.CheckpointStore {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store.Backend == "memory" {
		fmt.Println("Warning: the memory store is per-process; use the redis backend to inspect checkpoints across runs.")
	}

	store, cleanup, err := cli.BuildStore(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	cobra.OnFinalize(cleanup)
	return store
}
