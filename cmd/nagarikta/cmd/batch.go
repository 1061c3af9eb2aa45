package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/report"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// DefaultReportFile is the batch summary written when no path is given.
const DefaultReportFile = "nagarikta_report.xlsx"

var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Extract many cards in parallel and write an XLSX summary",
	Long: `Run the pipeline over image files, PDFs and directories of them with a
worker pool. Every card gets a row in the summary workbook; validation
issues and review flags go to a second sheet. With --output-dir the
artifacts of each card are written to <dir>/<name>.

Examples:
  nagarikta batch cards/
  nagarikta batch cards/ --recursive --workers 8 --report summary.xlsx
  nagarikta batch a.jpg b.pdf --output-dir results/ --progress`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.IntP("workers", "w", 0, "parallel workers (default batch.workers)")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.String("report", "", "XLSX summary path (default batch.report or "+DefaultReportFile+")")
	f.StringP("output-dir", "o", "", "write per card artifacts below this directory")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.String("ocr-engine", "", "primary OCR engine (paddle, tesseract)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyEngineFlag(cmd, cfg)
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers, _ = cmd.Flags().GetInt("workers")
	}
	reportPath := cfg.Batch.Report
	if cmd.Flags().Changed("report") {
		reportPath, _ = cmd.Flags().GetString("report")
	}
	if reportPath == "" {
		reportPath = DefaultReportFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	recursive, _ := cmd.Flags().GetBool("recursive")
	paths, err := collectInputs(args, recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported images found in %s", strings.Join(args, ", "))
	}

	pcfg := cfg.ToPipelineConfig()
	p, err := pipeline.New(pcfg)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	par := pcfg.Parallel
	if show, _ := cmd.Flags().GetBool("progress"); show {
		par.Progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Extracting")
	} else {
		par.Progress = pipeline.NewLogProgressCallback(slog.Default(), slog.LevelInfo)
	}
	items, err := p.RunBatch(cmd.Context(), paths, par)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("output-dir") {
		root, _ := cmd.Flags().GetString("output-dir")
		for _, it := range items {
			if _, err := it.Result.SaveArtifacts(filepath.Join(root, stem(it.Path)), cfg.Output.YAML); err != nil {
				slog.Warn("saving artifacts failed", "path", it.Path, "error", err)
			}
		}
	}
	if err := report.WriteFile(reportPath, items); err != nil {
		return err
	}

	var ok int
	for _, it := range items {
		if it.Result.Success {
			ok++
		}
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Processed %d cards: %d succeeded, %d failed\nReport: %s\n",
		len(items), ok, len(items)-ok, reportPath)
	return nil
}

// collectInputs expands directories into the supported files they hold.
// Explicit file arguments are kept as given.
func collectInputs(args []string, recursive bool) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if isCardFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

func isCardFile(path string) bool {
	return utils.IsSupportedImage(path) || strings.EqualFold(filepath.Ext(path), ".pdf")
}
