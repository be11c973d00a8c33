package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/registry"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Local inference server supervisor",
		Long:          "inferd locates llama-server binaries, supervises one per model, and exposes a small loopback control API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")
	root.AddCommand(newServeCmd(), newModelsCmd())
	return root
}

// newLogger builds the process logger from the persistent log-level flag,
// falling back to the config file value when the flag was not set.
func newLogger(cmd *cobra.Command, configLevel string) zerolog.Logger {
	lvlStr := "info"
	if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
		if f.Changed {
			lvlStr = f.Value.String()
		} else if configLevel != "" {
			lvlStr = configLevel
		}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(lvlStr))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func newModelsCmd() *cobra.Command {
	var modelsDir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List *.gguf models in the models directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := registry.LoadDir(modelsDir)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no models found in", modelsDir)
				return nil
			}
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d MB\t%s\n", m.ID, m.SizeBytes/(1<<20), m.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelsDir, "models-dir", "~/models/llm", "Directory to scan for *.gguf model files")
	return cmd
}

// splitCSV splits a comma-separated flag value, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
