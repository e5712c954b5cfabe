package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/vignette"
	"github.com/aretw0/vignette/internal/cli"
	"github.com/aretw0/vignette/internal/presentation/tui"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/export"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a run of prompt variants",
		Long: `Generates a reproducible batch of variants for a scene rendered with a technique.
The same run id, scene, technique and count always produce the same batch; --seed
derives the batch from an explicit base seed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := vignette.GenerateRequest{}
			req.RunID, _ = cmd.Flags().GetString("run-id")
			req.SceneID, _ = cmd.Flags().GetString("scene")
			req.TechniqueID, _ = cmd.Flags().GetString("technique")
			req.VariantCount, _ = cmd.Flags().GetInt("count")
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetUint32("seed")
				req.BaseSeed = &seed
			}
			if cmd.Flags().Changed("threshold") {
				threshold, _ := cmd.Flags().GetInt("threshold")
				req.PassThreshold = &threshold
			}
			jsonMode, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(app *cli.App) error {
				res, err := app.Engine.Generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonMode {
					return printJSON(cmd.OutOrStdout(), res)
				}
				return writeReport(cmd.Context(), cmd.OutOrStdout(), app, res.Run, res.Variants)
			})
		},
	}

	generateCmd.Flags().String("scene", "", "Scene card id")
	generateCmd.Flags().String("technique", "", "Technique id")
	generateCmd.Flags().String("run-id", "", "Run id (generated when omitted)")
	generateCmd.Flags().IntP("count", "n", 12, "Number of variants (clamped to 1..24)")
	generateCmd.Flags().Uint32("seed", 0, "Base seed for the batch")
	generateCmd.Flags().Int("threshold", 80, "QC pass threshold")
	generateCmd.Flags().Bool("json", false, "Print the run as JSON")
	_ = generateCmd.MarkFlagRequired("scene")
	_ = generateCmd.MarkFlagRequired("technique")
	return generateCmd
}

func newQCCmd() *cobra.Command {
	qcCmd := &cobra.Command{
		Use:   "qc VARIANT_ID",
		Short: "Grade a variant",
		Long: `Submits the four QC sub-scores (0..5) of a variant. The weighted score decides
pass or fail against the run's threshold; --threshold changes it for the whole run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := vignette.QCRequest{VariantID: args[0]}
			req.Breakdown.CharacterConsistency, _ = cmd.Flags().GetFloat64("character")
			req.Breakdown.CompositionConsistency, _ = cmd.Flags().GetFloat64("composition")
			req.Breakdown.ArtifactCleanliness, _ = cmd.Flags().GetFloat64("artifacts")
			req.Breakdown.TextSafety, _ = cmd.Flags().GetFloat64("text")
			if cmd.Flags().Changed("threshold") {
				threshold, _ := cmd.Flags().GetInt("threshold")
				req.Threshold = &threshold
			}
			jsonMode, _ := cmd.Flags().GetBool("json")

			return withApp(cmd, func(app *cli.App) error {
				res, err := app.Engine.UpdateQC(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonMode {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s scored %d: %s\n", res.Variant.ID, *res.Variant.QCScore, res.Variant.Status)
				printChanges(cmd.OutOrStdout(), res.Changes, res.Variant.ID)
				return nil
			})
		},
	}

	qcCmd.Flags().Float64("character", 0, "Character consistency (0..5)")
	qcCmd.Flags().Float64("composition", 0, "Composition consistency (0..5)")
	qcCmd.Flags().Float64("artifacts", 0, "Artifact cleanliness (0..5)")
	qcCmd.Flags().Float64("text", 0, "Text safety (0..5)")
	qcCmd.Flags().Int("threshold", 80, "New pass threshold for the run")
	qcCmd.Flags().Bool("json", false, "Print the result as JSON")
	for _, name := range []string{"character", "composition", "artifacts", "text"} {
		_ = qcCmd.MarkFlagRequired(name)
	}
	return qcCmd
}

func newBestCmd() *cobra.Command {
	bestCmd := &cobra.Command{
		Use:   "best RUN_ID VARIANT_ID",
		Short: "Mark the best variant of a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				res, err := app.Engine.MarkBest(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now the best variant of %s\n", res.BestVariant.ID, res.Run.ID)
				printChanges(cmd.OutOrStdout(), res.Changes, res.BestVariant.ID)
				return nil
			})
		},
	}
	return bestCmd
}

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")
			return withApp(cmd, func(app *cli.App) error {
				run, variants, err := app.Engine.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"run": run, "variants": variants})
				}
				return writeReport(cmd.Context(), cmd.OutOrStdout(), app, run, variants)
			})
		},
	}
	showCmd.Flags().Bool("json", false, "Print the run as JSON")
	return showCmd
}

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export RUN_ID",
		Short: "Export a run as CSV or Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if format != "csv" && format != "markdown" {
				return fmt.Errorf("unknown format %q (supported: csv, markdown)", format)
			}

			return withApp(cmd, func(app *cli.App) error {
				run, variants, err := app.Engine.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}

				if format == "csv" {
					return export.CSV(w, run, variants)
				}
				report, err := buildReport(cmd.Context(), app, run, variants)
				if err != nil {
					return err
				}
				_, err = io.WriteString(w, export.Markdown(report))
				return err
			})
		},
	}
	exportCmd.Flags().StringP("format", "f", "csv", "Export format: csv or markdown")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return exportCmd
}

func buildReport(ctx context.Context, app *cli.App, run domain.Run, variants []domain.Variant) (export.Report, error) {
	doc, err := app.Engine.Document(ctx)
	if err != nil {
		return export.Report{}, err
	}
	return export.Report{
		Run:       run,
		Scene:     doc.Scene(run.SceneID),
		Technique: doc.Technique(run.TechniqueID),
		Variants:  variants,
	}, nil
}

// writeReport renders the run report, styled on terminals.
func writeReport(ctx context.Context, w io.Writer, app *cli.App, run domain.Run, variants []domain.Variant) error {
	report, err := buildReport(ctx, app, run, variants)
	if err != nil {
		return err
	}
	return tui.WriteMarkdown(w, export.Markdown(report))
}

// printChanges lists the status moves of other variants caused by an update.
func printChanges(w io.Writer, diff *domain.RunDiff, self string) {
	if diff == nil {
		return
	}
	if diff.PassThreshold != nil {
		fmt.Fprintf(w, "  threshold of %s is now %d\n", diff.RunID, *diff.PassThreshold)
	}
	for _, c := range diff.Statuses {
		if c.VariantID == self {
			continue
		}
		fmt.Fprintf(w, "  %s: %s -> %s\n", c.VariantID, c.From, c.To)
	}
}
