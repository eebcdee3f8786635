package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tutorion/internal/chunker"
	"tutorion/internal/llm"
	"tutorion/internal/store"
)

func newTopicsCmd() *cobra.Command {
	var (
		output   string
		model    string
		apiKey   string
		maxChars int
	)
	cmd := &cobra.Command{
		Use:   "topics <path>",
		Short: "Extract topics from a PDF and write them to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("invalid value for path: %w", err)
			}

			cfg := loadConfig(model)
			if cmd.Flags().Changed("max-chars") {
				cfg.MaxChars = maxChars
			}
			deps, err := buildDeps(cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			chunks, err := chunker.LoadDocuments(deps.Extractor, []string{path}, cfg.MaxChars)
			if err != nil {
				return err
			}
			deps.Log.Info("document loaded", "path", path, "chunks", len(chunks), "max_chars", cfg.MaxChars)

			key, err := cfg.ResolveAPIKey(apiKey)
			if err != nil {
				return err
			}
			tutor, err := deps.Tutor(key)
			if err != nil {
				return err
			}
			topics, err := tutor.ExtractTopics(cmd.Context(), chunks, llm.DefaultTopK)
			if err != nil {
				return err
			}
			if err := store.SaveTopics(topics, output); err != nil {
				return fmt.Errorf("saving topics: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d topics to %s\n", len(topics), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "output/topics.json", "where to save topic outlines")
	cmd.Flags().StringVar(&model, "model", "", "OpenAI model to use (default LLM_MODEL or gpt-5-mini)")
	cmd.Flags().IntVar(&maxChars, "max-chars", chunker.DefaultMaxChars, "chunk size in characters when reading PDFs")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key; defaults to OPENAI_API_KEY")
	return cmd
}
