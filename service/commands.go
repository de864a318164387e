// Package service holds the quill command line: the API server plus the
// storage maintenance commands.
package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quill/app/config"
	"quill/app/repositories"
	"quill/app/routes"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var errNotBadger = errors.New("backup and restore need the badger backend")

type cli struct {
	configPath string
	logOut     io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the quill command tree. Logs go to logOut.
func NewRootCommand(logOut io.Writer) *cobra.Command {
	c := &cli{logOut: logOut}

	root := &cobra.Command{
		Use:           "quill",
		Short:         "Blog content API with pluggable storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = config.SetupLogger(cfg.Log, c.logOut)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		c.serveCommand(),
		c.tagsCommand(),
		c.statsCommand(),
		c.initCommand(),
		c.cleanCommand(),
		c.backupCommand(),
		c.restoreCommand(),
		versionCommand(),
	)
	return root
}

// Execute runs the CLI against os.Args and returns the process exit code.
func Execute() int {
	if err := NewRootCommand(os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (c *cli) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the blog HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			return app.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

// withServices opens storage for the duration of fn.
func (c *cli) withServices(ctx context.Context, fn func(*routes.Services) error) error {
	stores, err := repositories.Open(ctx, c.cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()
	return fn(routes.NewServices(stores, c.logger))
}

func (c *cli) tagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "Print every distinct post tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd.Context(), func(svc *routes.Services) error {
				tags, err := svc.Posts.Tags(cmd.Context())
				if err != nil {
					return err
				}
				for _, tag := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), tag)
				}
				return nil
			})
		},
	}
}

func (c *cli) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print record counts per collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withServices(ctx, func(svc *routes.Services) error {
				posts, err := svc.Posts.Count(ctx)
				if err != nil {
					return err
				}
				categories, err := svc.Categories.Count(ctx)
				if err != nil {
					return err
				}
				comments, err := svc.Comments.Count(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "backend:    %s\n", c.cfg.Storage.Backend)
				fmt.Fprintf(out, "posts:      %d\n", posts)
				fmt.Fprintf(out, "categories: %d\n", categories)
				fmt.Fprintf(out, "comments:   %d\n", comments)
				return nil
			})
		},
	}
}

// initCommand creates the collections for the configured backend.
func (c *cli) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create empty collections in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(c.cfg.Storage.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			stores, err := repositories.Open(cmd.Context(), c.cfg.StoreOptions())
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			if err := stores.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s storage in %s\n", c.cfg.Storage.Backend, c.cfg.Storage.DataDir)
			return nil
		},
	}
}

// confirm asks a yes/no question on the command's streams. Anything but
// y or Y is a no.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

func (c *cli) cleanCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the data directory and everything in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cfg.Storage.DataDir
			if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "Data directory is already clean (does not exist)")
				return nil
			}
			if !yes && !confirm(cmd, "Are you sure you want to delete "+dir+"? This cannot be undone.") {
				fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
				return nil
			}
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("clean data directory: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Data directory cleaned")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (c *cli) badgerPath() (string, error) {
	if c.cfg.Storage.Backend != repositories.BackendBadger {
		return "", fmt.Errorf("%w (configured: %s)", errNotBadger, c.cfg.Storage.Backend)
	}
	return filepath.Join(c.cfg.Storage.DataDir, "badger"), nil
}

func (c *cli) backupCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of the badger database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.badgerPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no database at %s to back up", path)
			}
			if outDir == "" {
				outDir = filepath.Join(c.cfg.Storage.DataDir, "backups")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create backup directory: %w", err)
			}

			db, err := repositories.OpenBadger(path, false)
			if err != nil {
				return err
			}
			defer db.Close()

			file := filepath.Join(outDir, fmt.Sprintf("backup_%d.db", time.Now().Unix()))
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			if err := db.Backup(f); err != nil {
				f.Close()
				os.Remove(file)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close backup file: %w", err)
			}
			c.logger.Info("backup written", slog.String("file", file))
			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up to %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "backup directory (default <data_dir>/backups)")
	return cmd
}

func (c *cli) restoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the badger database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.badgerPath()
			if err != nil {
				return err
			}
			file := args[0]
			fi, err := os.Stat(file)
			if err != nil {
				return fmt.Errorf("backup file: %w", err)
			}
			if fi.Size() == 0 {
				return fmt.Errorf("backup file is empty: %s", file)
			}

			_, statErr := os.Stat(path)
			existing := statErr == nil
			if existing && !yes && !confirm(cmd, "Existing database found. Do you want to replace it?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
				return nil
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			staging, err := os.MkdirTemp(filepath.Dir(path), "badger-restore-")
			if err != nil {
				return fmt.Errorf("create staging directory: %w", err)
			}
			defer os.RemoveAll(staging)

			if err := loadSnapshot(staging, file); err != nil {
				return err
			}
			if err := swapDir(path, staging, existing); err != nil {
				return err
			}
			c.logger.Info("backup restored", slog.String("file", file))
			fmt.Fprintln(cmd.OutOrStdout(), "Database restored successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// loadSnapshot replays a backup file into a fresh database at dir.
func loadSnapshot(dir, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()

	db, err := repositories.OpenBadger(dir, false)
	if err != nil {
		return err
	}
	if err := db.Load(f); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// swapDir moves staging into place at path. The previous database is kept
// aside until the rename succeeds and put back if it fails.
func swapDir(path, staging string, existing bool) error {
	if !existing {
		if err := os.Rename(staging, path); err != nil {
			return fmt.Errorf("install restored database: %w", err)
		}
		return nil
	}

	old := path + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("remove stale database copy: %w", err)
	}
	if err := os.Rename(path, old); err != nil {
		return fmt.Errorf("move existing database aside: %w", err)
	}
	if err := os.Rename(staging, path); err != nil {
		if rbErr := os.Rename(old, path); rbErr != nil {
			return errors.Join(fmt.Errorf("install restored database: %w", err), fmt.Errorf("put back previous database: %w", rbErr))
		}
		return fmt.Errorf("install restored database: %w", err)
	}
	return os.RemoveAll(old)
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quill version %s\n", Version)
		},
	}
}
