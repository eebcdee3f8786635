package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tutorion/internal/llm"
	"tutorion/internal/store"
)

func newQuizCmd() *cobra.Command {
	var (
		output     string
		difficulty string
		model      string
		apiKey     string
	)
	cmd := &cobra.Command{
		Use:   "quiz <topics-file>",
		Short: "Generate quiz questions for the first topic in a saved topics file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicsFile := args[0]
			// The topics file is checked before any credential or network work.
			records, err := store.LoadTopicsFile(topicsFile)
			if err != nil {
				return err
			}
			topic := records[0].Summary(topicsFile)

			cfg := loadConfig(model)
			deps, err := buildDeps(cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			key, err := cfg.ResolveAPIKey(apiKey)
			if err != nil {
				return err
			}
			tutor, err := deps.Tutor(key)
			if err != nil {
				return err
			}
			deps.Log.Info("generating quiz", "topic", topic.Topic, "difficulty", difficulty, "excerpts", len(topic.RepresentativeChunks))
			questions, err := tutor.GenerateQuiz(cmd.Context(), topic, difficulty)
			if err != nil {
				return err
			}
			if err := store.SaveQuiz(questions, output); err != nil {
				return fmt.Errorf("saving quiz: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d questions to %s\n", len(questions), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "output/quiz.json", "where to save quiz questions")
	cmd.Flags().StringVar(&difficulty, "difficulty", llm.DefaultDifficulty, "difficulty label sent to the model")
	cmd.Flags().StringVar(&model, "model", "", "OpenAI model to use (default LLM_MODEL or gpt-5-mini)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key; defaults to OPENAI_API_KEY")
	return cmd
}
