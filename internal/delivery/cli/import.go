package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/product-matcher/internal/infrastructure"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/spf13/cobra"
)

var manifestHeader = []string{"article_number", "product_name", "filename"}

// ImportRow — строка манифеста; Line считается с учётом заголовка.
type ImportRow struct {
	Line          int
	ArticleNumber string
	ProductName   string
	Filename      string
	Barcode       *string
}

type ImportFailure struct {
	Line          int    `json:"line"`
	ArticleNumber string `json:"article_number"`
	Error         string `json:"error"`
}

type ImportReport struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

func newImportCmd(open Opener) *cobra.Command {
	var (
		dir          string
		manifest     string
		maxImageSize int64
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import products from a CSV manifest and an image directory",
		Long: "Manifest columns: article_number,product_name,filename[,barcode].\n" +
			"filename is resolved relative to --dir. Failed rows are reported and do not stop the import.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(manifest)
			if err != nil {
				return e.Wrap("open manifest", err)
			}
			defer f.Close()

			rows, err := ReadManifest(f)
			if err != nil {
				return err
			}

			return withBackend(cmd, open, func(ctx context.Context, b Backend) error {
				report := ImportRows(ctx, b.Catalog(), dir, maxImageSize, rows)
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if len(report.Failed) > 0 {
					return fmt.Errorf("%d of %d rows failed", len(report.Failed), len(rows))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory with product images")
	cmd.Flags().StringVar(&manifest, "manifest", "", "path to the CSV manifest")
	cmd.Flags().Int64Var(&maxImageSize, "max-image-size", 15<<20, "maximum image size in bytes")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

// ReadManifest разбирает CSV с обязательным заголовком. Колонка barcode необязательна.
func ReadManifest(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, e.Wrap("read manifest header", err)
	}
	if len(header) < len(manifestHeader) {
		return nil, fmt.Errorf("manifest header %v: want %s[,barcode]", header, strings.Join(manifestHeader, ","))
	}
	for i, col := range manifestHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return nil, fmt.Errorf("manifest column %d is %q, want %q", i+1, header[i], col)
		}
	}

	var rows []ImportRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, e.Wrap(fmt.Sprintf("manifest line %d", line), err)
		}
		if len(rec) < len(manifestHeader) {
			return nil, fmt.Errorf("manifest line %d: expected at least %d columns, got %d", line, len(manifestHeader), len(rec))
		}

		row := ImportRow{
			Line:          line,
			ArticleNumber: strings.TrimSpace(rec[0]),
			ProductName:   strings.TrimSpace(rec[1]),
			Filename:      strings.TrimSpace(rec[2]),
		}
		if len(rec) > 3 {
			if barcode := strings.TrimSpace(rec[3]); barcode != "" {
				row.Barcode = &barcode
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ImportRows сохраняет строки по одной; ошибка строки попадает в отчёт и не прерывает импорт.
func ImportRows(ctx context.Context, catalog usecase.CatalogUC, dir string, maxImageSize int64, rows []ImportRow) *ImportReport {
	report := &ImportReport{Failed: []ImportFailure{}}

	for _, row := range rows {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, ImportFailure{Line: row.Line, ArticleNumber: row.ArticleNumber, Error: ctx.Err().Error()})
			continue
		}

		if err := importRow(ctx, catalog, dir, maxImageSize, row); err != nil {
			report.Failed = append(report.Failed, ImportFailure{Line: row.Line, ArticleNumber: row.ArticleNumber, Error: err.Error()})
			continue
		}
		report.Imported++
	}

	return report
}

func importRow(ctx context.Context, catalog usecase.CatalogUC, dir string, maxImageSize int64, row ImportRow) error {
	if row.Filename == "" {
		return e.ErrNoImage
	}

	data, err := readImage(filepath.Join(dir, filepath.FromSlash(row.Filename)), maxImageSize)
	if err != nil {
		return err
	}

	mimeType, err := infrastructure.DetectImageMIME(data)
	if err != nil {
		return e.Wrap(row.Filename, err)
	}

	image := usecase.NewProductImage(data, mimeType, int64(len(data)), filepath.Base(row.Filename))
	_, err = catalog.SaveProduct(ctx, usecase.NewSaveProductReq(row.ArticleNumber, row.ProductName, row.Barcode, image))
	return err
}

func readImage(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, e.Wrap(path, e.ErrFileTooLarge)
	}

	return data, nil
}
