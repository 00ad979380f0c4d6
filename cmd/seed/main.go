// Command main populates the database and file bucket with demo content.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/Ding-Dongen/filesharingapp1--2/internal/config"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/database"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/seed"
	"github.com/Ding-Dongen/filesharingapp1--2/internal/storage"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of regular users to create")
	numAdmins := flag.Int("admins", 2, "Number of admins to create; the first is a superadmin")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	numFiles := flag.Int("files", 40, "Number of files to create")
	comments := flag.Int("comments", 4, "Maximum comments per post")
	shouldClean := flag.Bool("clean", false, "Delete existing content before seeding")
	foldersOnly := flag.Bool("folders-only", false, "Only create the folder tree")
	treeFile := flag.String("tree", "", "YAML folder tree to use instead of the built-in one")
	fast := flag.Bool("fast", false, "Skip bcrypt; seeded profiles will not be able to log in")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	flag.Parse()

	if err := run(*treeFile, *shouldClean, *foldersOnly, seed.Options{
		NumUsers:        *numUsers,
		NumAdmins:       *numAdmins,
		NumPosts:        *numPosts,
		NumFiles:        *numFiles,
		CommentsPerPost: *comments,
		Factory:         seed.FactoryOptions{SkipBcrypt: *fast, DryRun: *dryRun},
	}); err != nil {
		slog.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(treeFile string, clean, foldersOnly bool, opts seed.Options) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		slog.Warn("seeding a production database")
	}

	tree := seed.DefaultFolders()
	if treeFile != "" {
		data, err := os.ReadFile(treeFile)
		if err != nil {
			return err
		}
		if tree, err = seed.ParseFolderTree(data); err != nil {
			return err
		}
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	bucket, err := storage.NewLocalBucket(cfg.StorageDir)
	if err != nil {
		return err
	}

	s := seed.NewSeeder(db, bucket, opts.Factory)
	if clean {
		if err := s.ClearAll(ctx); err != nil {
			return err
		}
		slog.Info("existing content cleared")
	}

	if foldersOnly {
		opts = seed.Options{Factory: opts.Factory}
	}
	sum, err := s.Seed(ctx, tree, opts)
	if err != nil {
		return err
	}

	slog.Info("all done",
		slog.Int("profiles", sum.Profiles),
		slog.Int("folders", sum.Folders),
		slog.Int("files", sum.Files),
		slog.Int("posts", sum.Posts))
	if !opts.Factory.SkipBcrypt && sum.Profiles > 0 {
		slog.Info("seeded profiles share one password", slog.String("password", seed.DefaultPassword))
	}
	return nil
}
