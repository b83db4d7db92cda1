package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"local-gallery/internal/indexer"
	"local-gallery/internal/library"
	"local-gallery/internal/media"
	"local-gallery/internal/workers"
)

type scanOptions struct {
	JSON          bool
	Workers       int
	BatchSize     int
	ThumbnailDir  string
	ThumbnailSize int
}

// scanResult is the JSON form of a scan.
type scanResult struct {
	Root     string               `json:"root"`
	Summary  library.Summary      `json:"summary"`
	Duration string               `json:"duration"`
	Records  []library.FileRecord `json:"records"`
}

func newScanCommand() *cobra.Command {
	opts := scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Index a folder and print its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			res, err := scan(cmd.Context(), root, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if wantJSON(out, opts.JSON) {
				return writeJSON(out, res)
			}
			return printRecords(out, res)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON even on a terminal")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "parallel record builders (default: based on CPU count)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", indexer.DefaultBatchSize, "records per batch event")
	cmd.Flags().StringVar(&opts.ThumbnailDir, "thumbnails", "", "generate thumbnails into this directory")
	cmd.Flags().IntVar(&opts.ThumbnailSize, "thumbnail-size", 300, "thumbnail bounding box in pixels")
	return cmd
}

// scan runs one indexing pass over root into a fresh in-memory library.
func scan(ctx context.Context, root string, opts scanOptions) (scanResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Workers <= 0 {
		opts.Workers = workers.ForIndexing(16)
	}

	var thumbs *media.ThumbnailGenerator
	if opts.ThumbnailDir != "" {
		thumbs = media.NewThumbnailGenerator(opts.ThumbnailDir, opts.ThumbnailSize, true)
	}

	cache := library.New()
	events := make(chan library.Event, 64)
	done := make(chan error, 1)
	go func() { done <- cache.Run(context.Background(), events) }()

	idx := indexer.New(events, cache, nil, thumbs, indexer.Config{
		BatchSize: opts.BatchSize,
		Workers:   opts.Workers,
	})

	start := time.Now()
	summary, err := idx.IndexFolder(ctx, root)
	close(events)
	if runErr := <-done; runErr != nil && err == nil {
		err = runErr
	}
	if err != nil {
		return scanResult{}, fmt.Errorf("scan %s: %w", root, err)
	}

	return scanResult{
		Root:     root,
		Summary:  summary,
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Records:  cache.RecordsForRoot(root),
	}, nil
}

func printRecords(w io.Writer, res scanResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tDIMENSIONS\tMODIFIED")
	for _, rec := range res.Records {
		dims := "-"
		if rec.Dimensions != nil {
			dims = fmt.Sprintf("%dx%d", rec.Dimensions.Width, rec.Dimensions.Height)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.Name,
			humanize.Bytes(uint64(max(rec.Size, 0))),
			dims,
			humanize.Time(rec.ModifiedAt),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var total int64
	for _, rec := range res.Records {
		total += rec.Size
	}
	_, err := fmt.Fprintf(w, "\n%s images (%s) in %s, scanned in %s\n",
		humanize.Comma(int64(len(res.Records))),
		humanize.Bytes(uint64(max(total, 0))),
		res.Root,
		res.Duration,
	)
	return err
}
