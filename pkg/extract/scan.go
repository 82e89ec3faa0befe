package extract

import "regexp"

// ScanType labels the imaging modality of a procedure report.
type ScanType string

const (
	ScanCT         ScanType = "CT"
	ScanMRI        ScanType = "MRI"
	ScanXRay       ScanType = "X-Ray"
	ScanUltrasound ScanType = "Ultrasound"
	ScanPET        ScanType = "PET"
)

// scanRule pairs a modality label with the pattern that detects it.
type scanRule struct {
	label ScanType
	re    *regexp.Regexp
}

// scanRules is evaluated in order and the first match wins. The order is a
// deliberate priority, not a ranking: a report mentioning both "CT" and
// "ultrasound" is a CT report because CT-guided procedures routinely mention
// ultrasound in passing.
var scanRules = []scanRule{
	{ScanCT, regexp.MustCompile(`(?i)\b(?:ct|cat scan|computed tomography)\b`)},
	{ScanMRI, regexp.MustCompile(`(?i)\b(?:mri|mr imaging|magnetic resonance)\b`)},
	{ScanXRay, regexp.MustCompile(`(?i)\b(?:x-?ray|radiograph|fluoroscop)`)},
	{ScanUltrasound, regexp.MustCompile(`(?i)\b(?:ultrasound|ultrasonograph|sonograph|doppler)`)},
	{ScanPET, regexp.MustCompile(`(?i)\b(?:pet|positron emission)\b`)},
}

// ClassifyScan returns the modality of the first matching rule, or "" when no
// rule matches. The whole narrative is considered, case-insensitively.
func ClassifyScan(text string) ScanType {
	for _, rule := range scanRules {
		if rule.re.MatchString(text) {
			return rule.label
		}
	}
	return ""
}
