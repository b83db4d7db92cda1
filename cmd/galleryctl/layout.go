package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"local-gallery/internal/layout"
)

type layoutOptions struct {
	Width     float64
	Cell      float64
	Gap       float64
	Count     int
	ScrollTop float64
	Height    float64
	Overscan  int
	JSON      bool
}

type layoutResult struct {
	Layout layout.Layout     `json:"layout"`
	Rows   int               `json:"rows"`
	Range  layout.IndexRange `json:"range"`
}

func newLayoutCommand() *cobra.Command {
	opts := layoutOptions{}
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute the grid and visible range for a viewport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := computeLayout(opts)
			out := cmd.OutOrStdout()
			if opts.JSON {
				return writeJSON(out, res)
			}

			l := res.Layout
			if !l.Valid {
				_, err := fmt.Fprintf(out, "no cell fits: width %.0f, cell %.0f\n", l.ViewportWidth, l.NominalSize)
				return err
			}
			fmt.Fprintf(out, "columns:   %d\n", l.Columns)
			fmt.Fprintf(out, "cell:      %.2f px (gap %.0f)\n", l.CellSize, l.Gap)
			fmt.Fprintf(out, "rows:      %d\n", res.Rows)
			if res.Range.Empty() {
				_, err := fmt.Fprintln(out, "visible:   none")
				return err
			}
			_, err := fmt.Fprintf(out, "visible:   %d-%d (%d cells)\n", res.Range.First, res.Range.Last, res.Range.Len())
			return err
		},
	}

	cmd.Flags().Float64Var(&opts.Width, "width", 1280, "viewport width in pixels")
	cmd.Flags().Float64Var(&opts.Cell, "cell", 200, "nominal cell size in pixels")
	cmd.Flags().Float64Var(&opts.Gap, "gap", 8, "gap between cells in pixels")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "number of records")
	cmd.Flags().Float64Var(&opts.ScrollTop, "scroll-top", 0, "scroll offset in pixels")
	cmd.Flags().Float64Var(&opts.Height, "height", 800, "viewport height in pixels")
	cmd.Flags().IntVar(&opts.Overscan, "overscan", 2, "extra rows above and below")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON")
	return cmd
}

func computeLayout(opts layoutOptions) layoutResult {
	l := layout.Compute(opts.Width, opts.Cell, opts.Gap)
	return layoutResult{
		Layout: l,
		Rows:   l.Rows(opts.Count),
		Range:  layout.VisibleIndexRange(opts.ScrollTop, opts.Height, l.Columns, l.RowHeight(), opts.Overscan, opts.Count),
	}
}
