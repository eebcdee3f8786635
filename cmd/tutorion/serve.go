package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tutorion/internal/chunker"
	"tutorion/internal/workspace"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port   int
		model  string
		apiKey string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP tutoring workspace",
		Long: `serve keeps an in-memory tutoring session: add study material as text or
PDF, extract topics from everything added so far, and generate a quiz for a
topic by id. State is lost when the process exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(model)
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
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

			ws := workspace.New(tutor, cfg.MaxChars)
			handler := workspace.NewRouter(ws, chunker.PDFExtractor{Log: deps.Log}, workspace.ServerOptions{
				RequireAuth:         cfg.RequireAuth,
				ResourceBaseURL:     cfg.ResourceBaseURL,
				AuthorizationServer: cfg.AuthorizationServer,
				Scopes:              cfg.Scopes,
				MaxUploadSize:       cfg.MaxUploadSize,
			}, deps.Log)

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				deps.Log.Info("workspace listening", "addr", srv.Addr, "model", cfg.LLMModel, "require_auth", cfg.RequireAuth)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				deps.Log.Info("shutting down workspace")
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().IntVar(&port, "port", 8787, "port to listen on (default PORT or 8787)")
	cmd.Flags().StringVar(&model, "model", "", "OpenAI model to use (default LLM_MODEL or gpt-5-mini)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key; defaults to OPENAI_API_KEY")
	return cmd
}
