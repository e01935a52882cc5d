// Package main provides the CLI entry point for xlquote.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xlquote"
)

var (
	templatePath string
	requestPath  string
	outputPath   string
	layoutPath   string
	pricingPath  string
	recalc       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlquote",
		Short: "Generate a formatted quote workbook from a template and line items",
		Long: `xlquote reads a JSON generation request and an .xlsx template, lays the
line items out over the template's variable regions (inserting rows,
relocating the floating blocks and rewriting formulas as needed), and
writes the finished workbook.`,
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template .xlsx path (required)")
	rootCmd.Flags().StringVarP(&requestPath, "input", "i", "", "Generation request JSON path (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "quote.xlsx", "Output .xlsx path")
	rootCmd.Flags().StringVar(&layoutPath, "layout", "", "Sheet layout JSON (default: built-in layout)")
	rootCmd.Flags().StringVar(&pricingPath, "pricing", "", "Rate card JSON (default: built-in rate card)")
	rootCmd.Flags().BoolVar(&recalc, "recalc", true, "Ask Excel to recalculate formulas on open")
	_ = rootCmd.MarkFlagRequired("template")
	_ = rootCmd.MarkFlagRequired("input")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var req xlquote.Request
	if err := readJSON(requestPath, &req); err != nil {
		return fmt.Errorf("read request: %w", err)
	}

	opts := []xlquote.Option{
		xlquote.WithTemplate(templatePath),
		xlquote.WithRecalculateOnOpen(recalc),
	}
	if layoutPath != "" {
		var layout xlquote.Layout
		if err := readJSON(layoutPath, &layout); err != nil {
			return fmt.Errorf("read layout: %w", err)
		}
		opts = append(opts, xlquote.WithLayout(&layout))
	}
	if pricingPath != "" {
		var pricing xlquote.PricingConfig
		if err := readJSON(pricingPath, &pricing); err != nil {
			return fmt.Errorf("read pricing: %w", err)
		}
		opts = append(opts, xlquote.WithPricing(&pricing))
	}

	res, err := xlquote.NewBuilder(opts...).Build(&req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := os.WriteFile(outputPath, res.Bytes, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (items $%.2f, add-ons $%.2f)\n",
		outputPath, res.ItemsTotal+res.ServicesTotal, res.AddonsTotal+res.ServicesAddonTotal)
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
