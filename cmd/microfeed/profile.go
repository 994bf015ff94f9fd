package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/microfeed/microfeed/internal/auth"
	"github.com/microfeed/microfeed/internal/domain"
	"github.com/microfeed/microfeed/internal/repository/postgres"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your author profile",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update your profile",
	RunE:  runProfileSet,
}

func init() {
	profileSetCmd.Flags().String("name", "", "display name (required)")
	profileSetCmd.Flags().String("bio", "", "short bio")
	_ = profileSetCmd.MarkFlagRequired("name")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	session := auth.NewManager()
	identity, err := signIn(cfg, session)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	bio, _ := cmd.Flags().GetString("bio")

	prof := &domain.Profile{Email: identity.Email, Name: name}
	if bio != "" {
		prof.Bio = &bio
	}

	if err := postgres.NewProfileRepo(pool).Upsert(ctx, prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Printf("Profile saved for %s\n", prof.Email)
	return nil
}
