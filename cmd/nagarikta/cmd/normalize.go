package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/nagarikta/internal/geometry"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
	"github.com/MeKo-Tech/nagarikta/internal/utils"
)

// MetadataFile holds the warp metadata written by normalize.
const MetadataFile = "warp_metadata.json"

var normalizeCmd = &cobra.Command{
	Use:   "normalize IMAGE",
	Short: "Find the card border and write the canonical image",
	Long: `Run only the normalization phase: locate the printed border, warp it to
the canonical size and write canonical.png and warp_metadata.json.

Examples:
  nagarikta normalize card.jpg
  nagarikta normalize card.jpg --output-dir canon/`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringP("output-dir", "o", "", "output directory (default output_<image name>)")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	norm, err := geometry.New(cfg.ToGeometryConfig())
	if err != nil {
		return err
	}
	img, err := pipeline.Load(args[0])
	if err != nil {
		return err
	}
	res := norm.Normalize(img)
	if !res.Success {
		return errors.New(res.Error)
	}

	dir := outputDir(cmd, cfg, args[0])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := utils.SavePNG(filepath.Join(dir, pipeline.CanonicalFile), res.Image); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(res.Metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), meta, 0o644); err != nil { //nolint:gosec // not secret
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "strategy: %s\n%s\ncanonical: %s\n",
		res.Metadata.Strategy, res.Metadata.Explanation, filepath.Join(dir, pipeline.CanonicalFile))
	return nil
}
