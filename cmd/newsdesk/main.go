// Newsdesk aggregates articles from several news providers, merges
// duplicate stories, classifies them and serves them from a cache backed by
// SQLite or PostgreSQL.
//
// Usage:
//
//	newsdesk serve              # HTTP API (+ optional polling)
//	newsdesk fetch technology   # print the listing for a category
//	newsdesk resolve <slug>     # look an article up by slug
//	newsdesk repair             # classify stored articles lacking a category
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/newsdesk/internal/api"
	"github.com/RobinCoderZhao/newsdesk/internal/config"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/classify"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/pipeline"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/scheduler"
	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "newsdesk",
		Short:         "News ingestion, dedup and classification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "newsdesk.yaml", "config file path")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(fetchCmd(&configPath, false))
	rootCmd.AddCommand(fetchCmd(&configPath, true))
	rootCmd.AddCommand(resolveCmd(&configPath))
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(repairCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	var origin string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Server.JWTSecret == "" {
				slog.Warn("JWT_SECRET not set, refresh and repair endpoints are disabled")
			}

			server := api.NewServer(a.pipeline, a.cfg.Server.JWTSecret)
			server.SetAllowedOrigin(origin)
			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if interval := a.cfg.PollInterval(); interval > 0 {
				sched := scheduler.NewScheduler()
				for _, c := range a.cfg.Poll.Categories {
					sched.Add(scheduler.RefreshJob(a.pipeline, strings.ToLower(c)))
				}
				go sched.Start(ctx, interval)
				defer sched.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("starting API server", "addr", a.cfg.Server.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server: %w", err)
				}
			case <-ctx.Done():
			}

			slog.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "cors-origin", "", "allow browser requests from this origin")
	return cmd
}

func fetchCmd(configPath *string, force bool) *cobra.Command {
	var outputJSON bool

	use, short := "fetch [category]", "Print the article listing for a category"
	if force {
		use, short = "refresh [category]", "Re-fetch a category from providers, ignoring cache and storage freshness"
	}

	cmd := &cobra.Command{
		Use:       use,
		Short:     short,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: classify.Labels(),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := classify.General
			if len(args) == 1 {
				category = args[0]
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var articles []store.Article
			if force {
				articles, err = a.pipeline.ForceRefresh(ctx, category)
			} else {
				articles, err = a.pipeline.GetArticles(ctx, category)
			}
			if errors.Is(err, pipeline.ErrStorage) {
				slog.Warn("results were not stored", "error", err)
			} else if err != nil {
				return err
			}
			return printArticles(articles, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output JSON")
	return cmd
}

func resolveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Find an article by exact, partial or fuzzy slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.pipeline.ResolveBySlug(ctx, args[0])
			if errors.Is(err, pipeline.ErrNotFound) {
				fmt.Printf("no article matches %q\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(article)
		},
	}
}

func classifyCmd() *cobra.Command {
	var title, description, content string
	var scores bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify text with the keyword scorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(classify.Classify(title, description, content))
			if scores {
				return printJSON(classify.Scores(title + " " + description + " " + content))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "article title")
	cmd.Flags().StringVar(&description, "description", "", "article description")
	cmd.Flags().StringVar(&content, "content", "", "article body")
	cmd.Flags().BoolVar(&scores, "scores", false, "print per-category scores")
	return cmd
}

func repairCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Assign categories to stored articles that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.pipeline.RepairCategories(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("repaired %d articles\n", n)
			return nil
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the refresh and repair endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := api.GenerateToken(cfg.Server.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("newsdesk %s\n", version)
		},
	}
}

func printArticles(articles []store.Article, asJSON bool) error {
	if asJSON {
		return printJSON(articles)
	}
	if len(articles) == 0 {
		fmt.Println("no articles")
		return nil
	}
	for _, a := range articles {
		fmt.Printf("%s  [%s]  %s\n    %s\n    %s\n",
			a.PublishedAt.Format("2006-01-02 15:04"), a.Category, a.Title, a.Source, a.Slug)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
