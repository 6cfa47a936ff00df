// The doctree CLI runs administrative tasks against the metadata store:
// bootstrapping the schema and root folder, recounting drifted subtrees,
// and sweeping orphaned blobs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"doctree/internal/blob"
	"doctree/internal/cache"
	"doctree/internal/config"
	"doctree/internal/domain/models"
	"doctree/internal/domain/repositories"
	"doctree/internal/domain/services"
	"doctree/internal/jobs"
	"doctree/internal/pathcodec"
	"doctree/internal/repository/postgres"
	"doctree/internal/service/hierarchy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "doctree: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "doctree",
		Short:        "Folder/document metadata store admin CLI",
		Long:         `doctree runs administrative tasks: bootstrapping the schema and root folder, repairing drifted counters and paths, and sweeping orphaned blobs.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newBootstrapCmd(),
		newRecountCmd(),
		newSweepBlobsCmd(),
	)
	return cmd
}

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the database schema and the root folder singleton",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newAdminEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := postgres.EnsureSchema(ctx, env.pool, env.tables); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			if err := env.hierarchy.EnsureRoot(ctx); err != nil {
				return fmt.Errorf("ensure root folder: %w", err)
			}

			fmt.Println("schema and root folder ready")
			return nil
		},
	}
}

func newRecountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount [folder-id]",
		Short: "Repair paths, depths, and counters for a subtree (defaults to the whole tree)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newAdminEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			folderID := models.RootFolderID
			if len(args) == 1 {
				folderID = args[0]
			}

			if err := env.hierarchy.Reconcile(ctx, folderID); err != nil {
				return fmt.Errorf("reconcile %s: %w", folderID, err)
			}

			fmt.Printf("subtree %s reconciled\n", folderID)
			return nil
		},
	}
}

func newSweepBlobsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep-blobs",
		Short: "Delete blobs no live document record references",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newAdminEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			refs, err := env.blobs.ListRefs(ctx)
			if err != nil {
				return fmt.Errorf("list blobs: %w", err)
			}

			live, err := liveBlobRefs(ctx, env)
			if err != nil {
				return err
			}

			swept := 0
			for _, ref := range refs {
				if live[ref] {
					continue
				}
				if dryRun {
					fmt.Printf("orphan: %s\n", ref)
					swept++
					continue
				}
				if err := env.blobs.Delete(ctx, ref); err != nil {
					return fmt.Errorf("delete blob %s: %w", ref, err)
				}
				swept++
			}

			if dryRun {
				fmt.Printf("%d orphaned blobs found (dry run)\n", swept)
			} else {
				fmt.Printf("%d orphaned blobs deleted\n", swept)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List orphans without deleting them")
	return cmd
}

// liveBlobRefs collects the blob refs of every live document by walking
// the full folder tree from the root.
func liveBlobRefs(ctx context.Context, env *adminEnv) (map[string]bool, error) {
	folders, err := env.folders.ListSubtree(ctx, pathcodec.RootPath)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	ids := make([]string, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}

	docs, err := env.docs.ListByFolders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	live := make(map[string]bool, len(docs))
	for _, d := range docs {
		live[d.BlobRef] = true
	}
	return live, nil
}

// adminEnv bundles the store, blob, and service handles the subcommands
// share. The CLI runs uncached and unqueued: repairs apply inline.
type adminEnv struct {
	pool      *pgxpool.Pool
	tables    *postgres.TableNames
	folders   repositories.FolderRepository
	docs      repositories.DocumentRepository
	blobs     *blob.MinioStore
	hierarchy services.HierarchyService
}

func newAdminEnv(ctx context.Context) (*adminEnv, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgres.NewFolderRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	tagRepo := postgres.NewTagRepository(repoConfig)

	blobStore, err := blob.NewMinioStore(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	hierarchySvc := hierarchy.NewService(
		folderRepo, docRepo, tagRepo, postgres.NewTransactionManager(pool),
		blobStore, cache.NewNoopCache(), jobs.NoopIndex{}, jobs.NoopQueue{},
		logger,
	)

	return &adminEnv{
		pool:      pool,
		tables:    tables,
		folders:   folderRepo,
		docs:      docRepo,
		blobs:     blobStore,
		hierarchy: hierarchySvc,
	}, nil
}

func (e *adminEnv) Close() {
	e.pool.Close()
}
