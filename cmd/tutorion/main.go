// Package main is the entry point for the tutorion CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tutorion/internal/app"
	"tutorion/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// buildDeps is a package-level var for test substitution.
var buildDeps = app.Build

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutorion",
		Short: "Generate study topics and quizzes from PDFs",
		Long: `tutorion reads PDF course material, asks a language model for an ordered
topic outline, and turns a saved topic into multiple-choice practice questions.

Configuration comes from the environment (or a .env file); flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.LoadDotEnv()
		},
	}
	root.AddCommand(newTopicsCmd(), newQuizCmd(), newServeCmd(), newVersionCmd())
	return root
}

// loadConfig reads the environment and applies the model flag shared by all commands.
func loadConfig(model string) config.Config {
	cfg := config.Load()
	if model != "" {
		cfg.LLMModel = model
	}
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
