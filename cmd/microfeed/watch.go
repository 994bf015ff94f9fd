package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/microfeed/microfeed/internal/app"
	"github.com/microfeed/microfeed/internal/auth"
	"github.com/microfeed/microfeed/internal/migrate"
	"github.com/microfeed/microfeed/internal/profile"
	"github.com/microfeed/microfeed/internal/realtime"
	"github.com/microfeed/microfeed/internal/repository/postgres"
	"github.com/microfeed/microfeed/pkg/timefmt"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Load the feed and follow realtime changes until interrupted",
	RunE:  runWatch,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		return migrate.Up(cmd.Context(), cfg.DatabaseURL)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	session := auth.NewManager()
	if _, err := signIn(cfg, session); err != nil {
		return err
	}

	cache := profile.NewCache(postgres.NewProfileRepo(pool))
	a := app.New(logger, postgres.NewPostRepo(pool), cache, session, cfg.Feed.PageSize)

	if err := a.Load(ctx); err != nil {
		return err
	}
	printFeed(a)

	// One channel per watched collection, released on teardown.
	postCh, err := realtime.Dial(ctx, cfg.Realtime.URL, cfg.AuthToken, realtime.CollectionPosts, logger)
	if err != nil {
		return fmt.Errorf("subscribing to posts: %w", err)
	}
	defer postCh.Close()

	profileCh, err := realtime.Dial(ctx, cfg.Realtime.URL, cfg.AuthToken, realtime.CollectionProfiles, logger)
	if err != nil {
		return fmt.Errorf("subscribing to profiles: %w", err)
	}
	defer profileCh.Close()

	return a.Run(ctx, postCh, profileCh)
}

func printFeed(a *app.App) {
	now := time.Now()
	for _, p := range a.Feed() {
		author := p.AuthorEmail
		if prof, ok := a.Profile(p.AuthorEmail); ok && prof.Name != "" {
			author = prof.Name
		}
		fmt.Printf("#%d  %s  by %s  (%s)\n", p.ID, p.Title, author, timefmt.Display(p.CreatedAt, now))
	}
}
