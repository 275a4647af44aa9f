package cmd

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/datadash-cli/internal/dashboard"
	"github.com/KaramelBytes/datadash-cli/internal/export"
	"github.com/KaramelBytes/datadash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chartType   string
	chartX      string
	chartY      string
	chartTitle  string
	chartOutput string
	chartWidth  int
	chartHeight int
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Render a bar, line, pie, doughnut or scatter chart to PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		sess := dashboard.NewSession()
		sess.Load(ds.Name, ds)
		sel := sess.Snapshot().Chart
		x, y := sel.X, sel.Y
		if chartX != "" {
			x = chartX
		}
		if chartY != "" {
			y = chartY
		}
		if y == "" {
			return fmt.Errorf("no numeric column to plot; pass --y")
		}
		if err := sess.SetChart(chartType, x, y); err != nil {
			return err
		}
		sel = sess.Snapshot().Chart

		var buf bytes.Buffer
		spec := export.ChartSpec{Type: sel.Type, X: sel.X, Y: sel.Y, Title: chartTitle, Width: chartWidth, Height: chartHeight}
		if err := export.RenderChart(ds, spec, &buf); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(chartOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart of %s by %s to %s\n", sel.Type, sel.Y, sel.X, chartOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartType, "type", "t", "bar", "chart type: bar | line | pie | doughnut | scatter")
	chartCmd.Flags().StringVar(&chartX, "x", "", "X axis / label column (default: first column)")
	chartCmd.Flags().StringVar(&chartY, "y", "", "Y axis / value column (default: first numeric column)")
	chartCmd.Flags().StringVar(&chartTitle, "title", "", "chart title")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "chart.png", "output PNG path")
	chartCmd.Flags().IntVar(&chartWidth, "width", 1024, "image width in pixels")
	chartCmd.Flags().IntVar(&chartHeight, "height", 512, "image height in pixels")
}
