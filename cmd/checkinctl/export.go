package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/PittChallenge/pittchallenge.com/internal/app"
	"github.com/PittChallenge/pittchallenge.com/internal/exports"
	"github.com/PittChallenge/pittchallenge.com/pkg/storage"
)

func exportCmd() *cobra.Command {
	var (
		kind, index, out string
		upload          bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a collection as CSV",
		Long: `Export one of the registration or check-in indexes as CSV.

Examples:
  checkinctl export --type registration --of id > registrations.csv
  checkinctl export --type checkin --of email --out checkins.csv.gz
  checkinctl export --type checkin --of id --upload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := exports.Collection(exports.Kind(kind), exports.Index(index))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if upload {
				return uploadExport(ctx, cmd.OutOrStdout(), a, collection)
			}

			if out == "" {
				_, err := a.Exporter.Export(ctx, collection, cmd.OutOrStdout())
				return err
			}
			rows, err := exportToFile(ctx, a.Exporter, collection, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d rows written to %s\n", rows, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(exports.KindRegistration), "record type (registration, checkin)")
	cmd.Flags().StringVar(&index, "of", string(exports.IndexID), "index (id, email)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; a .gz suffix compresses")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload a gzipped export to EXPORT_S3_BUCKET and print a download link")
	return cmd
}

type exporter interface {
	Export(ctx context.Context, collection string, w io.Writer) (int, error)
}

// exportToFile writes collection to path, gzipped when path ends in .gz. Close errors are
// returned since a failed flush leaves a truncated file.
func exportToFile(ctx context.Context, exp exporter, collection, path string) (rows int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		return exp.Export(ctx, collection, f)
	}
	zw := gzip.NewWriter(f)
	rows, err = exp.Export(ctx, collection, zw)
	if cerr := zw.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("finish gzip %s: %w", path, cerr)
	}
	return rows, err
}

// uploadExport streams the gzipped CSV into S3 and prints a pre-signed download link.
func uploadExport(ctx context.Context, out io.Writer, a *app.App, collection string) error {
	cfg := a.Config.AWS
	s3c, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.Region,
		AccessKeyID:          cfg.AccessKeyID,
		SecretAccessKey:      cfg.SecretAccessKey,
		ExportsBucket:        cfg.ExportsBucket,
		PresignExpireMinutes: cfg.PresignExpireMinutes,
	}, a.Logger)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	rows := make(chan int, 1)
	go func() {
		zw := gzip.NewWriter(pw)
		n, err := a.Exporter.Export(ctx, collection, zw)
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
		rows <- n
		pw.CloseWithError(err)
	}()

	key := storage.ExportKey(collection, time.Now())
	if _, err := s3c.Upload(ctx, s3c.ExportsBucket(), key, "text/csv", "gzip", pr); err != nil {
		_ = pr.CloseWithError(err)
		return fmt.Errorf("upload export: %w", err)
	}
	link, err := s3c.GeneratePresignedDownloadURL(ctx, s3c.ExportsBucket(), key, s3c.PresignExpire())
	if err != nil {
		return fmt.Errorf("presign export: %w", err)
	}
	fmt.Fprintf(out, "%d rows uploaded to s3://%s/%s\n%s\n", <-rows, s3c.ExportsBucket(), key, link)
	return nil
}
