package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/nagarikta/internal/config"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
)

// extractCmd runs the full pipeline on one card.
var extractCmd = &cobra.Command{
	Use:   "extract IMAGE",
	Short: "Extract the fields of one citizenship card",
	Long: `Run normalization, layout OCR and semantic extraction on a card photo or a
scanned PDF. The canonical image, a role overlay and extraction.json are
written to the output directory, output_<name> by default. The result is
printed to stdout in the selected format.

Examples:
  nagarikta extract card.jpg
  nagarikta extract card.jpg --ocr-engine tesseract --format text
  nagarikta extract scan.pdf --output-dir results/ --save-yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringP("output-dir", "o", "", "artifact directory (default output_<image name>)")
	f.String("ocr-engine", "", "primary OCR engine (paddle, tesseract)")
	f.StringP("format", "f", "", "stdout format: json, yaml or text")
	f.Bool("save-yaml", false, "also write extraction.yaml")
	f.Bool("no-artifacts", false, "print the result without writing files")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyEngineFlag(cmd, cfg)
	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	withYAML := cfg.Output.YAML
	if cmd.Flags().Changed("save-yaml") {
		withYAML, _ = cmd.Flags().GetBool("save-yaml")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := pipeline.New(cfg.ToPipelineConfig())
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	path := args[0]
	img, err := pipeline.Load(path)
	if err != nil {
		return err
	}
	res := p.Stream(cmd.Context(), img, pipeline.LogObserver{})

	if skip, _ := cmd.Flags().GetBool("no-artifacts"); !skip {
		dir := outputDir(cmd, cfg, path)
		written, err := res.SaveArtifacts(dir, withYAML)
		if err != nil {
			return fmt.Errorf("save artifacts: %w", err)
		}
		slog.Info("artifacts written", "dir", dir, "files", len(written))
	}

	if err := writeResult(cmd.OutOrStdout(), res, format); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("extraction failed: %s", res.Error)
	}
	return nil
}

func applyEngineFlag(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("ocr-engine") {
		cfg.OCR.Engine, _ = cmd.Flags().GetString("ocr-engine")
	}
}

// outputDir resolves --output-dir, then output.dir, then output_<stem>
// next to the working directory.
func outputDir(cmd *cobra.Command, cfg *config.Config, input string) string {
	if cmd.Flags().Changed("output-dir") {
		dir, _ := cmd.Flags().GetString("output-dir")
		return dir
	}
	if cfg.Output.Dir != "" {
		return filepath.Join(cfg.Output.Dir, stem(input))
	}
	return "output_" + stem(input)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeResult(w io.Writer, res *pipeline.Result, format string) error {
	var out []byte
	switch format {
	case "", "json":
		data, err := res.ToJSON()
		if err != nil {
			return err
		}
		out = append(data, '\n')
	case "yaml":
		data, err := res.ToYAML()
		if err != nil {
			return err
		}
		out = data
	case "text":
		out = []byte(res.ToText())
	default:
		return fmt.Errorf("unsupported format %q (json, yaml, text)", format)
	}
	_, err := w.Write(out)
	return err
}
