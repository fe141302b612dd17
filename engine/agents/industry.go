package agents

import "strings"

// IndustryProfile carries curated domain knowledge for one industry. The
// tables feed prompt context and fallback content, so degraded stages still
// produce industry-specific output instead of generic filler.
type IndustryProfile struct {
	ComplianceRequirements []string
	TrustFactors           []string
	SuccessMetrics         []string
	BuyerPsychology        []string
	EmotionalTriggers      []string
}

var industryProfiles = map[string]IndustryProfile{
	"fintech": {
		ComplianceRequirements: []string{"PCI DSS", "SOC 2 Type II", "FDIC member", "Bank Secrecy Act"},
		TrustFactors:           []string{"Security certifications", "Banking partnerships", "Regulatory approval", "Insurance coverage"},
		SuccessMetrics:         []string{"Setup time", "Transaction fees", "Approval rates", "API uptime"},
		BuyerPsychology:        []string{"Risk aversion", "Growth ambition", "Efficiency focus", "Compliance anxiety"},
		EmotionalTriggers:      []string{"Financial stress", "Business growth", "Time savings", "Security fears"},
	},
	"healthcare": {
		ComplianceRequirements: []string{"HIPAA", "HITECH", "SOC 2 Type II", "FDA regulations"},
		TrustFactors:           []string{"Clinical credentials", "Patient outcomes", "Privacy protection", "Medical endorsements"},
		SuccessMetrics:         []string{"Patient satisfaction", "Clinical outcomes", "Access time", "Privacy incidents"},
		BuyerPsychology:        []string{"Health anxiety", "Privacy concerns", "Outcome focus", "Trust requirements"},
		EmotionalTriggers:      []string{"Health fears", "Hope for improvement", "Convenience needs", "Privacy protection"},
	},
	"hr_tech": {
		ComplianceRequirements: []string{"SOC 2 Type II", "GDPR", "CCPA", "EEO compliance"},
		TrustFactors:           []string{"Enterprise security", "Compliance features", "Data protection", "Audit trails"},
		SuccessMetrics:         []string{"Employee satisfaction", "Process efficiency", "Compliance rates", "Data accuracy"},
		BuyerPsychology:        []string{"Efficiency drive", "Compliance fear", "Employee satisfaction", "Cost control"},
		EmotionalTriggers:      []string{"Administrative burden", "Compliance anxiety", "Employee happiness", "Growth challenges"},
	},
	"general": {
		ComplianceRequirements: []string{"SOC 2", "ISO 27001", "GDPR compliance"},
		TrustFactors:           []string{"Security measures", "Industry experience", "Customer testimonials"},
		SuccessMetrics:         []string{"Efficiency gains", "Cost savings", "Time reduction"},
		BuyerPsychology:        []string{"Efficiency focus", "ROI concern", "Risk management"},
		EmotionalTriggers:      []string{"Process frustration", "Growth ambition", "Competitive advantage"},
	},
}

// industryAliases maps common industry phrasings onto profile keys.
var industryAliases = map[string]string{
	"finance":           "fintech",
	"financial":         "fintech",
	"banking":           "fintech",
	"payments":          "fintech",
	"health":            "healthcare",
	"medical":           "healthcare",
	"telehealth":        "healthcare",
	"mental health":     "healthcare",
	"hr":                "hr_tech",
	"human resources":   "hr_tech",
	"people operations": "hr_tech",
	"recruiting":        "hr_tech",
}

// LookupIndustry resolves an industry string to its knowledge profile,
// falling back to the general profile for unrecognized industries.
func LookupIndustry(industry string) IndustryProfile {
	key := strings.ToLower(strings.TrimSpace(industry))

	if p, ok := industryProfiles[key]; ok {
		return p
	}
	for alias, target := range industryAliases {
		if strings.Contains(key, alias) {
			return industryProfiles[target]
		}
	}
	for name := range industryProfiles {
		if name != "general" && strings.Contains(key, name) {
			return industryProfiles[name]
		}
	}
	return industryProfiles["general"]
}
