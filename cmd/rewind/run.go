package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/rewind/internal/cli"
	"github.com/aretw0/rewind/internal/config"
	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [question]",
	Short: "Run the agent on a question, or resume from a checkpoint",
	Long: `Runs the agent until it reaches a terminal state, checkpointing before
every step. With --resume, restores a prior checkpoint instead of starting
fresh; --modify applies field-level changes to the restored state before
execution continues.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		resumeID, _ := cmd.Flags().GetString("resume")
		modifyJSON, _ := cmd.Flags().GetString("modify")
		jsonMode, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("budget") {
			cfg.StepBudget, _ = cmd.Flags().GetInt("budget")
		}

		if resumeID == "" && len(args) == 0 {
			fmt.Println("Error: a question is required unless --resume is given.")
			os.Exit(1)
		}
		if resumeID == "" && modifyJSON != "" {
			fmt.Println("Error: --modify requires --resume.")
			os.Exit(1)
		}

		logger := logging.New(logging.ParseLevel(cfg.LogLevel))
		agent, cleanup, err := cli.BuildAgent(cmd.Context(), cfg, logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		var state *domain.State
		if resumeID != "" {
			var patch *domain.Patch
			if modifyJSON != "" {
				var fields map[string]any
				if err := json.Unmarshal([]byte(modifyJSON), &fields); err != nil {
					fmt.Printf("Error parsing --modify: %v\n", err)
					os.Exit(1)
				}
				patch, err = domain.PatchFromMap(fields)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					os.Exit(1)
				}
			}
			state, err = agent.Resume(cmd.Context(), resumeID, patch)
		} else {
			state, err = agent.Run(cmd.Context(), args[0])
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if jsonMode {
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				fmt.Printf("Error marshaling state: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(data))
			return
		}

		if last, ok := state.LastMessage(); ok {
			fmt.Println(last.Content)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("resume", "", "Checkpoint ID to resume from (e.g. ckpt_2)")
	runCmd.Flags().String("modify", "", "JSON object of state fields to change before resuming")
	runCmd.Flags().Int("budget", 0, "Maximum model calls for this run (overrides config)")
	runCmd.Flags().Bool("json", false, "Print the full final state as JSON")
}
