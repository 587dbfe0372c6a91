package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trialops/trialops/internal/platform/blobstore"
	"github.com/trialops/trialops/internal/platform/vision"
)

var (
	ErrInvalidValue     = errors.New("value out of range")
	ErrUnknownField     = errors.New("unknown document field")
	ErrNoDocument       = errors.New("no document uploaded for extraction")
	ErrExtractionFailed = errors.New("document extraction failed")
)

// LVEF outside this range is treated as a misread and discarded.
const (
	lvefMin = 5
	lvefMax = 90
)

// labColumns whitelists the clinical payload accepted by the labs patch.
// Keys are the JSON field names, values the visits columns they map to.
var labColumns = map[string]string{
	"height":              "height",
	"weight":              "weight",
	"bmi":                 "bmi",
	"temperature":         "temperature",
	"pulse":               "pulse",
	"sbp":                 "sbp",
	"dbp":                 "dbp",
	"respiratory_rate":    "respiratory_rate",
	"hb":                  "hb",
	"rbc":                 "rbc",
	"wbc":                 "wbc",
	"polymorphs":          "polymorphs",
	"lymphocytes":         "lymphocytes",
	"monocytes":           "monocytes",
	"platelets":           "platelets",
	"sgot":                "sgot",
	"sgpt":                "sgpt",
	"bilirubin_total":     "bilirubin_total",
	"bilirubin_direct":    "bilirubin_direct",
	"bilirubin_indirect":  "bilirubin_indirect",
	"bun":                 "bun",
	"creatinine":          "creatinine",
	"total_cholesterol":   "total_cholesterol",
	"ldl":                 "ldl",
	"hdl":                 "hdl",
	"triglycerides":       "triglycerides",
	"nt_pro_bnp":          "nt_pro_bnp",
	"serum_tsh":           "serum_tsh",
	"serum_homocysteine":  "serum_homocysteine",
	"gsh":                 "gsh",
	"tnf_alpha":           "tnf_alpha",
	"il6":                 "il6",
	"same":                "same",
	"sah":                 "sah",
	"five_methylcytosine": "five_methylcytosine",
	"ecg_report":          "ecg_report",
	"echo_lvef":           "echo_lvef",
	"upt_result":          "upt_result",
}

// safetyPanelKeys are the routine hematology and biochemistry values read
// from a safety lab report.
var safetyPanelKeys = []string{
	"hb", "rbc", "wbc", "polymorphs", "lymphocytes", "monocytes", "platelets",
	"sgot", "sgpt", "bilirubin_total", "bilirubin_direct", "bilirubin_indirect",
	"bun", "creatinine", "total_cholesterol", "hdl", "ldl", "triglycerides",
	"serum_tsh", "serum_homocysteine", "nt_pro_bnp",
}

// efficacyPanelKeys are the trial biomarkers read from an efficacy lab
// report.
var efficacyPanelKeys = []string{
	"nt_pro_bnp", "serum_tsh", "serum_homocysteine",
	"gsh", "tnf_alpha", "il6", "same", "sah", "five_methylcytosine",
}

// documentFields whitelists the object-key columns a document upload may
// target.
var documentFields = map[string]string{
	"ecg":          "ecg_src",
	"echo":         "echo_src",
	"efficacy":     "efficacy_src",
	"safety":       "safety_src",
	"prescription": "prescription_src",
}

const echoPrompt = `You are reading an echocardiography report. Return a JSON object
with a single key "lvef" holding the left ventricular ejection fraction as a
number (percent). Use null if the value is not present.`

const labPanelPrompt = `You are reading a routine safety laboratory report (hematology and
biochemistry). Return a JSON object with exactly these keys, each holding the
measured value as a number without units: "hb", "rbc", "wbc", "polymorphs",
"lymphocytes", "monocytes", "platelets", "sgot", "sgpt", "bilirubin_total",
"bilirubin_direct", "bilirubin_indirect", "bun", "creatinine",
"total_cholesterol", "hdl", "ldl", "triglycerides", "serum_tsh",
"serum_homocysteine", "nt_pro_bnp". Use null for any value not present or
marked as not done. When the report lists multiple results for a test, choose
the most recent one. Do not add any other keys or text.`

const efficacyPrompt = `You are reading an efficacy laboratory report for a heart failure
clinical trial. The report may list NT-proBNP, serum TSH, serum homocysteine,
reduced glutathione (GSH), TNF-alpha, interleukin-6, S-adenosylmethionine
(SAMe), S-adenosylhomocysteine (SAH) and 5-methylcytosine, possibly under
variations of those names. Return a JSON object with exactly these keys, each
holding the measured value as a number without units: "nt_pro_bnp",
"serum_tsh", "serum_homocysteine", "gsh", "tnf_alpha", "il6", "same", "sah",
"five_methylcytosine". Use null for any marker not reported, not clearly
readable or marked as not done. When the report lists multiple results for a
marker, choose the most recent one. Do not add any other keys or text.`

// ApplyLabs patches clinical measurements onto a visit. Unknown keys are
// dropped, numeric values must be non-negative and echo_lvef must read as a
// plausible ejection fraction.
func (s *Service) ApplyLabs(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return ErrNotFound
	}
	fields := make(map[string]interface{}, len(patch))
	for key, val := range patch {
		col, ok := labColumns[key]
		if !ok {
			continue
		}
		if num, isNum := val.(float64); isNum {
			if num < 0 {
				return fmt.Errorf("%w: %s = %v", ErrInvalidValue, key, num)
			}
			if col == "echo_lvef" && (num < lvefMin || num > lvefMax) {
				return fmt.Errorf("%w: echo_lvef = %v", ErrInvalidValue, num)
			}
		}
		fields[col] = val
	}
	if len(fields) == 0 {
		return nil
	}
	return s.repo.Patch(ctx, id, fields)
}

// PresignUpload issues a time-limited PUT URL for a visit document and
// returns the object key the client must report back once uploaded.
func (s *Service) PresignUpload(ctx context.Context, id uuid.UUID, field, filename string, ttl time.Duration) (url, key string, err error) {
	if _, ok := documentFields[field]; !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return "", "", ErrNotFound
	}
	key = blobstore.VisitObjectKey(id.String(), field, filename)
	url, err = s.blob.PresignedPutURL(ctx, key, ttl)
	if err != nil {
		return "", "", fmt.Errorf("presign %s: %w", key, err)
	}
	return url, key, nil
}

// AttachDocument records an uploaded object key against a visit, deleting the
// previous document for the field when one exists.
func (s *Service) AttachDocument(ctx context.Context, id uuid.UUID, field, key string) error {
	col, ok := documentFields[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if old := s.documentKey(v, field); old != nil && *old != key {
		if err := s.blob.Delete(ctx, *old); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", *old).Msg("stale document not deleted")
		}
	}
	return s.repo.Patch(ctx, id, map[string]interface{}{col: key})
}

func (s *Service) documentKey(v *Visit, field string) *string {
	switch field {
	case "ecg":
		return v.ECGSrc
	case "echo":
		return v.EchoSrc
	case "efficacy":
		return v.EfficacySrc
	case "safety":
		return v.SafetySrc
	case "prescription":
		return v.PrescriptionSrc
	}
	return nil
}

// ExtractEcho runs vision extraction over the uploaded echo report and
// persists the LVEF when it reads as a plausible percentage. An implausible
// or missing reading stores null rather than a bad number.
func (s *Service) ExtractEcho(ctx context.Context, id uuid.UUID) (*float64, error) {
	if s.vision == nil {
		return nil, fmt.Errorf("%w: extractor not configured", ErrExtractionFailed)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if v.EchoSrc == nil {
		return nil, ErrNoDocument
	}
	data, mime, err := s.blob.Get(ctx, *v.EchoSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, *v.EchoSrc, err)
	}
	fields, err := s.vision.ExtractJSON(ctx, data, mime, echoPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	var lvef *float64
	if n, ok := vision.Number(fields, "lvef"); ok && n >= lvefMin && n <= lvefMax {
		lvef = &n
	}
	if err := s.repo.Patch(ctx, id, map[string]interface{}{"echo_lvef": lvef}); err != nil {
		return nil, err
	}
	return lvef, nil
}

// ExtractLabPanel reads the uploaded safety lab report and persists the
// routine hematology and biochemistry panel. Negative readings are treated
// as misreads and stored as null.
func (s *Service) ExtractLabPanel(ctx context.Context, id uuid.UUID) (map[string]*float64, error) {
	return s.extractPanel(ctx, id, func(v *Visit) *string { return v.SafetySrc }, labPanelPrompt, safetyPanelKeys)
}

// ExtractEfficacy reads the uploaded efficacy lab report and persists the
// trial biomarker panel. Negative readings are treated as misreads and
// stored as null.
func (s *Service) ExtractEfficacy(ctx context.Context, id uuid.UUID) (map[string]*float64, error) {
	return s.extractPanel(ctx, id, func(v *Visit) *string { return v.EfficacySrc }, efficacyPrompt, efficacyPanelKeys)
}

func (s *Service) extractPanel(ctx context.Context, id uuid.UUID, src func(*Visit) *string, prompt string, keys []string) (map[string]*float64, error) {
	if s.vision == nil {
		return nil, fmt.Errorf("%w: extractor not configured", ErrExtractionFailed)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	key := src(v)
	if key == nil {
		return nil, ErrNoDocument
	}
	data, mime, err := s.blob.Get(ctx, *key)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, *key, err)
	}
	fields, err := s.vision.ExtractJSON(ctx, data, mime, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	result := make(map[string]*float64, len(keys))
	patch := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		var val *float64
		if n, ok := vision.Number(fields, k); ok && n >= 0 {
			val = &n
		}
		result[k] = val
		patch[k] = val
	}
	if err := s.repo.Patch(ctx, id, patch); err != nil {
		return nil, err
	}
	return result, nil
}
