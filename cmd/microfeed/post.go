package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/microfeed/microfeed/internal/auth"
	"github.com/microfeed/microfeed/internal/config"
	"github.com/microfeed/microfeed/internal/repository/postgres"
	"github.com/microfeed/microfeed/internal/service"
	"github.com/microfeed/microfeed/internal/storage"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create, edit and delete posts",
}

var postAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new post",
	RunE:  runPostAdd,
}

var postEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostEdit,
}

var postRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete one of your posts (and its stored image)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostRm,
}

func init() {
	postAddCmd.Flags().String("title", "", "post title (required)")
	postAddCmd.Flags().String("description", "", "optional description")
	postAddCmd.Flags().String("image", "", "path to an image to attach")
	_ = postAddCmd.MarkFlagRequired("title")

	postEditCmd.Flags().String("title", "", "new title (required)")
	postEditCmd.Flags().String("description", "", "new description")
	postEditCmd.Flags().String("image", "", "path to a replacement image")
	postEditCmd.Flags().Bool("clear-image", false, "remove the attached image")
	_ = postEditCmd.MarkFlagRequired("title")

	postCmd.AddCommand(postAddCmd)
	postCmd.AddCommand(postEditCmd)
	postCmd.AddCommand(postRmCmd)
	rootCmd.AddCommand(postCmd)
}

// progressPrinter surfaces orchestrator progress on stdout.
type progressPrinter struct{}

func (progressPrinter) Progress(stage string) {
	fmt.Printf("... %s\n", stage)
}

func runPostAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, identity, cleanup, err := postContext(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	imagePath, _ := cmd.Flags().GetString("image")

	input := service.CreatePostInput{Title: title, Description: description}
	if imagePath != "" {
		img, closeImg, err := openImage(imagePath)
		if err != nil {
			return err
		}
		defer closeImg()
		input.Image = img
	}

	post, err := svc.Create(ctx, identity.Email, input)
	if err != nil {
		return err
	}
	fmt.Printf("Created post #%d\n", post.ID)
	return nil
}

func runPostEdit(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid post id %q", args[0])
	}

	ctx := cmd.Context()
	svc, identity, cleanup, err := postContext(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	imagePath, _ := cmd.Flags().GetString("image")
	clearImage, _ := cmd.Flags().GetBool("clear-image")

	input := service.EditPostInput{Title: title, Description: description, ClearImage: clearImage}
	if imagePath != "" {
		img, closeImg, err := openImage(imagePath)
		if err != nil {
			return err
		}
		defer closeImg()
		input.Image = img
	}

	post, err := svc.Edit(ctx, identity.Email, id, input)
	if err != nil {
		return err
	}
	fmt.Printf("Updated post #%d\n", post.ID)
	return nil
}

func runPostRm(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid post id %q", args[0])
	}

	ctx := cmd.Context()
	svc, identity, cleanup, err := postContext(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Delete(ctx, identity.Email, id); err != nil {
		return err
	}
	fmt.Printf("Deleted post #%d\n", id)
	return nil
}

// postContext builds the orchestrator and its collaborators for one
// mutation command.
func postContext(ctx context.Context) (*service.PostService, *auth.Identity, func(), error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, nil, err
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	session := auth.NewManager()
	identity, err := signIn(cfg, session)
	if err != nil {
		pool.Close()
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		pool.Close()
		_ = logger.Sync()
		return nil, nil, nil, err
	}

	svc := service.NewPostService(postgres.NewPostRepo(pool), objects, logger)
	svc.SetNotifier(progressPrinter{})

	cleanup := func() {
		pool.Close()
		_ = logger.Sync()
	}
	logger.Debug("post command ready", zap.String("author", identity.Email))
	return svc, identity, cleanup, nil
}

func newObjectStore(cfg *config.Config) (*storage.S3Client, error) {
	return storage.NewS3Client(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.PublicBaseURL,
		cfg.Storage.UseSSL,
	)
}

func openImage(path string) (*service.ImageUpload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("reading image: %w", err)
	}
	return &service.ImageUpload{
		FileName:    filepath.Base(path),
		Content:     f,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	}, func() { f.Close() }, nil
}
