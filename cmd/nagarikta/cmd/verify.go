package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
)

// ErrVerificationFailed is returned when the card does not satisfy the
// decision policy.
var ErrVerificationFailed = errors.New("verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify IMAGE",
	Short: "Check applicant claims against a card",
	Long: `Extract the card fields and compare them with the claimed name, date of
birth and citizenship number. Names match at a similarity of at least
0.85; dates and numbers must be equal after normalization. The policy
decides whether all checks or any check must pass.

Examples:
  nagarikta verify card.jpg --name "Sristi Bhattarai" --dob 2063-08-07 --citizenship-no 42-02-81-00802
  nagarikta verify card.jpg --name "Sristi Bhattarai" --dob 2063-AUG-07 --citizenship-no 4202 --policy any`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

// VerifyOutput is printed by verify.
type VerifyOutput struct {
	RunID   string     `json:"run_id"`
	Claims  kyc.Claims `json:"claims"`
	Checks  kyc.Checks `json:"checks"`
	Policy  string     `json:"policy"`
	Passed  bool       `json:"passed"`
	Success bool       `json:"extraction_success"`
	Error   string     `json:"error,omitempty"`
}

func init() {
	f := verifyCmd.Flags()
	f.String("name", "", "claimed full name")
	f.String("dob", "", "claimed date of birth")
	f.String("citizenship-no", "", "claimed citizenship certificate number")
	f.String("subject", "", "applicant reference")
	f.String("policy", "", "decision policy: all or any (default server.policy)")
	f.String("ocr-engine", "", "primary OCR engine (paddle, tesseract)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyEngineFlag(cmd, cfg)

	claims := kyc.Claims{}
	claims.FullName, _ = cmd.Flags().GetString("name")
	claims.DateOfBirth, _ = cmd.Flags().GetString("dob")
	claims.CitizenshipNo, _ = cmd.Flags().GetString("citizenship-no")
	claims.SubjectID, _ = cmd.Flags().GetString("subject")
	if err := claims.Validate(); err != nil {
		return err
	}

	policyName := cfg.Server.Policy
	if cmd.Flags().Changed("policy") {
		policyName, _ = cmd.Flags().GetString("policy")
	}
	if policyName == "" {
		policyName = "all"
	}
	policy, err := kyc.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg.ToPipelineConfig())
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	res := p.Run(cmd.Context(), args[0])
	checks := kyc.CrossCheck(res, claims)
	out := VerifyOutput{
		RunID:   res.RunID,
		Claims:  claims,
		Checks:  checks,
		Policy:  policyName,
		Passed:  res.Success && policy(checks),
		Success: res.Success,
		Error:   res.Error,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if !out.Passed {
		return ErrVerificationFailed
	}
	return nil
}
