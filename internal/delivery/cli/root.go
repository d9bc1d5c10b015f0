package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/spf13/cobra"
)

// Backend — usecase-слой, с которым работают команды.
type Backend interface {
	Catalog() usecase.CatalogUC
	Maintenance() usecase.MaintenanceUC
	Close(ctx context.Context) error
}

// Opener поднимает зависимости лениво: help и ошибки разбора флагов не требуют подключения к БД.
type Opener func(ctx context.Context) (Backend, error)

func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Maintenance tool for the product image catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStatsCmd(open),
		newSweepCmd(open),
		newBackfillCmd(open),
		newGetCmd(open),
		newImportCmd(open),
	)

	return root
}

// withBackend открывает зависимости на время одной команды.
func withBackend(cmd *cobra.Command, open Opener, fn func(ctx context.Context, b Backend) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(ctx, b)
}

func newStatsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				stats, err := b.Maintenance().ComputeStats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"valid":            stats.Valid,
					"with_barcode":     stats.WithBarcode,
					"created_last_24h": stats.CreatedLast24h,
					"orphans":          stats.Orphans,
					"total":            stats.Total,
					"computed_at":      stats.ComputedAt,
				})
			})
		},
	}
}

func newSweepCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove products whose image is missing from storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				res, err := b.Maintenance().SweepOrphans(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{
					"removed": res.Removed,
					"failed":  res.Failed,
				})
			})
		},
	}
}

func newBackfillCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Re-normalize stored embeddings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				res, err := b.Maintenance().BackfillNormalization(ctx)
				if err != nil {
					return err
				}
				degenerate := res.Degenerate
				if degenerate == nil {
					degenerate = []string{}
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"scanned":    res.Scanned,
					"updated":    res.Updated,
					"degenerate": degenerate,
				})
			})
		},
	}
}

func newGetCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "get <article_number>",
		Short: "Print a product by article number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				product, err := b.Catalog().GetByArticleNumber(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"id":             product.ID,
					"article_number": product.ArticleNumber,
					"product_name":   product.Name,
					"barcode":        product.Barcode,
					"image_path":     product.ImagePath,
					"created_at":     product.CreatedAt,
				})
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
