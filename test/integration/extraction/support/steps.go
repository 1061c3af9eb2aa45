package support

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/nagarikta/internal/kyc"
	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/testutil"
)

// aBlankCardPhoto sets a plain white photo, which has no detectable border.
func (testCtx *TestContext) aBlankCardPhoto(w, h int) error {
	testCtx.Photo = testutil.BlankCard(w, h)
	return nil
}

func (testCtx *TestContext) aPhotoWithOnlyTheTopAndBottomRules() error {
	testCtx.Photo = testutil.RuledCard()
	return nil
}

// theOCREngineReads loads detections from a table with the columns
// x0, y0, x1, y1, text and confidence.
func (testCtx *TestContext) theOCREngineReads(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("detection table needs a header and at least one row")
	}
	header := map[string]int{}
	for i, c := range table.Rows[0].Cells {
		header[strings.TrimSpace(c.Value)] = i
	}
	for _, col := range []string{"x0", "y0", "x1", "y1", "text", "confidence"} {
		if _, ok := header[col]; !ok {
			return fmt.Errorf("detection table is missing column %q", col)
		}
	}
	for n, row := range table.Rows[1:] {
		cell := func(col string) string { return row.Cells[header[col]].Value }
		var nums [5]float64
		for i, col := range []string{"x0", "y0", "x1", "y1", "confidence"} {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell(col)), 64)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", n+1, col, err)
			}
			nums[i] = v
		}
		testCtx.Engine.Out.Detections = append(testCtx.Engine.Out.Detections,
			testutil.Det(nums[0], nums[1], nums[2], nums[3], cell("text"), nums[4]))
	}
	return nil
}

func (testCtx *TestContext) theOCREngineIsUnavailable() error {
	testCtx.Engine.Err = fmt.Errorf("%w: paddle: model not found", ocrengine.ErrEngineUnavailable)
	return nil
}

func (testCtx *TestContext) theCardIsExtracted(ctx context.Context) error {
	if testCtx.Photo == nil {
		return errors.New("no photo was given")
	}
	p, err := testCtx.Pipeline()
	if err != nil {
		return err
	}
	testCtx.Result = p.RunImage(ctx, testCtx.Photo)
	return nil
}

func (testCtx *TestContext) requireResult() error {
	if testCtx.Result == nil {
		return errors.New("the card was not extracted")
	}
	return nil
}

func (testCtx *TestContext) theExtractionSucceeds() error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if !testCtx.Result.Success {
		return fmt.Errorf("extraction failed: %s", testCtx.Result.Error)
	}
	return nil
}

func (testCtx *TestContext) theExtractionFailsInPhase(phase int) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if testCtx.Result.Success {
		return errors.New("extraction succeeded")
	}
	prefix := fmt.Sprintf("Phase %d failed: ", phase)
	if !strings.HasPrefix(testCtx.Result.Error, prefix) {
		return fmt.Errorf("error %q does not start with %q", testCtx.Result.Error, prefix)
	}
	return nil
}

func (testCtx *TestContext) theBorderStrategyIs(name string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if testCtx.Result.WarpMetadata == nil {
		return errors.New("no warp metadata")
	}
	if got := string(testCtx.Result.WarpMetadata.Strategy); got != name {
		return fmt.Errorf("border strategy is %q, want %q", got, name)
	}
	return nil
}

func (testCtx *TestContext) theCanonicalCardIsKept() error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if testCtx.Result.Canonical == nil {
		return errors.New("canonical image was dropped")
	}
	return nil
}

func (testCtx *TestContext) noFieldsWereExtracted() error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if n := len(testCtx.Result.Fields); n != 0 {
		return fmt.Errorf("%d fields were extracted", n)
	}
	return nil
}

func (testCtx *TestContext) fieldIs(name, want string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	v, ok := testCtx.Result.Fields[name]
	if !ok {
		return fmt.Errorf("field %s was not extracted", name)
	}
	if v.IsParts() || v.Text != want {
		return fmt.Errorf("field %s is %q, want %q", name, testCtx.Result.FieldText(name), want)
	}
	return nil
}

func (testCtx *TestContext) fieldIsAbsent(name string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if _, ok := testCtx.Result.Fields[name]; ok {
		return fmt.Errorf("field %s is %q", name, testCtx.Result.FieldText(name))
	}
	return nil
}

// fieldHasParts compares a structured field with a two column table of
// part names and values.
func (testCtx *TestContext) fieldHasParts(name string, table *godog.Table) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	v, ok := testCtx.Result.Fields[name]
	if !ok || !v.IsParts() {
		return fmt.Errorf("field %s has no parts", name)
	}
	want := map[string]string{}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return errors.New("parts table needs two columns")
		}
		want[row.Cells[0].Value] = row.Cells[1].Value
	}
	if len(want) != len(v.Parts) {
		return fmt.Errorf("field %s has parts %v, want %v", name, v.Parts, want)
	}
	for k, w := range want {
		if got := v.Parts[k]; got != w {
			return fmt.Errorf("part %s of %s is %q, want %q", k, name, got, w)
		}
	}
	return nil
}

func (testCtx *TestContext) flaggedForReview(flag string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if !slices.Contains(testCtx.Result.FlagsForReview, flag) {
		return fmt.Errorf("%q not in flags %v", flag, testCtx.Result.FlagsForReview)
	}
	return nil
}

func (testCtx *TestContext) notFlaggedForReview(flag string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if slices.Contains(testCtx.Result.FlagsForReview, flag) {
		return fmt.Errorf("%q was flagged", flag)
	}
	return nil
}

func (testCtx *TestContext) thereAreNoValidationIssues() error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if n := len(testCtx.Result.ValidationIssues); n != 0 {
		return fmt.Errorf("%d validation issues: %v", n, testCtx.Result.ValidationIssues)
	}
	return nil
}

func (testCtx *TestContext) theApplicantClaims(name, dob, number string) error {
	testCtx.Claims = kyc.Claims{FullName: name, DateOfBirth: dob, CitizenshipNo: number}
	return testCtx.Claims.Validate()
}

func (testCtx *TestContext) theVerificationUnderPolicy(policy, outcome string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	decide, err := kyc.ParsePolicy(policy)
	if err != nil {
		return err
	}
	testCtx.Checks = kyc.CrossCheck(testCtx.Result, testCtx.Claims)
	passed := decide(testCtx.Checks)
	if passed != (outcome == "passes") {
		return fmt.Errorf("verification passed=%v with checks %+v", passed, testCtx.Checks)
	}
	return nil
}

// RegisterExtractionSteps registers the photo, engine and extraction steps.
func (testCtx *TestContext) RegisterExtractionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a blank card photo of (\d+)x(\d+) pixels$`, testCtx.aBlankCardPhoto)
	sc.Step(`^a photo with only the top and bottom rules of the card$`, testCtx.aPhotoWithOnlyTheTopAndBottomRules)
	sc.Step(`^the OCR engine reads:$`, testCtx.theOCREngineReads)
	sc.Step(`^the OCR engine is unavailable$`, testCtx.theOCREngineIsUnavailable)
	sc.Step(`^the card is extracted$`, testCtx.theCardIsExtracted)
	sc.Step(`^the extraction succeeds$`, testCtx.theExtractionSucceeds)
	sc.Step(`^the extraction fails in phase (\d+)$`, testCtx.theExtractionFailsInPhase)
	sc.Step(`^the border strategy is "([^"]*)"$`, testCtx.theBorderStrategyIs)
	sc.Step(`^the canonical card is kept$`, testCtx.theCanonicalCardIsKept)
}

// RegisterFieldSteps registers assertions on extracted fields.
func (testCtx *TestContext) RegisterFieldSteps(sc *godog.ScenarioContext) {
	sc.Step(`^field "([^"]*)" is "([^"]*)"$`, testCtx.fieldIs)
	sc.Step(`^field "([^"]*)" is absent$`, testCtx.fieldIsAbsent)
	sc.Step(`^field "([^"]*)" has parts:$`, testCtx.fieldHasParts)
	sc.Step(`^no fields were extracted$`, testCtx.noFieldsWereExtracted)
	sc.Step(`^"([^"]*)" is flagged for review$`, testCtx.flaggedForReview)
	sc.Step(`^"([^"]*)" is not flagged for review$`, testCtx.notFlaggedForReview)
	sc.Step(`^there are no validation issues$`, testCtx.thereAreNoValidationIssues)
}

// RegisterVerificationSteps registers the KYC cross check steps.
func (testCtx *TestContext) RegisterVerificationSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the applicant claims name "([^"]*)" born "([^"]*)" with certificate "([^"]*)"$`,
		testCtx.theApplicantClaims)
	sc.Step(`^the verification under policy "([^"]*)" (passes|fails)$`, testCtx.theVerificationUnderPolicy)
}
