package explain

import "github.com/mikey/phishguard/internal/features"

var descriptions = map[features.Feature]string{
	features.HasIPAddress:         "Use of IP address in URL",
	features.URLLength:            "Unusually long URL",
	features.HasAtSymbol:          "URL contains @ symbol",
	features.HasManySubdomains:    "Multiple subdomains",
	features.HasSuspiciousTLD:     "Suspicious top-level domain",
	features.HasHyphens:           "Multiple hyphens in domain",
	features.HasPasswordField:     "Password input field",
	features.HasSensitiveKeywords: "Sensitive keywords",
	features.MismatchedFormAction: "Form submits to different domain",
	features.IsNotHTTPS:           "Non-secure connection",
	features.HasCertificateIssues: "SSL certificate issues",
}

var reasons = map[features.Feature]string{
	features.HasIPAddress:         "Website uses an IP address instead of a domain name",
	features.URLLength:            "Unusually long URL that may be hiding redirects or suspicious parameters",
	features.HasAtSymbol:          "URL contains @ symbol which can be used to hide the actual destination",
	features.HasManySubdomains:    "URL has multiple subdomains, often used to create legitimate-looking URLs",
	features.HasSuspiciousTLD:     "Website uses a top-level domain commonly associated with phishing",
	features.HasHyphens:           "Domain contains hyphens, common in fake domains",
	features.HasPasswordField:     "Page contains password input fields requesting sensitive information",
	features.HasSensitiveKeywords: "Page contains keywords related to account verification or financial information",
	features.MismatchedFormAction: "Form submits data to a different domain than the current website",
	features.IsNotHTTPS:           "Website does not use a secure HTTPS connection",
	features.HasCertificateIssues: "Website has SSL certificate issues or mismatches",
}

var hints = map[features.Feature][]Highlight{
	features.HasPasswordField: {
		{Feature: features.HasPasswordField, Element: "Password input field", Description: "Sensitive data collection"},
	},
	features.MismatchedFormAction: {
		{Feature: features.MismatchedFormAction, Element: "Form", Description: "Submits data to external domain"},
	},
	features.HasSensitiveKeywords: {
		{Feature: features.HasSensitiveKeywords, Element: "Page text", Description: "Contains sensitive keywords"},
	},
	features.HasAtSymbol: {
		{Feature: features.HasAtSymbol, Element: "Address bar", Description: "Text before @ is not the real destination"},
	},
	features.HasIPAddress: {
		{Feature: features.HasIPAddress, Element: "Address bar", Description: "Host is a raw IP address"},
	},
}

// Describe returns the short label of a feature, or its name when unknown
func Describe(f features.Feature) string {
	if d, ok := descriptions[f]; ok {
		return d
	}
	return string(f)
}

// Reason returns the sentence explaining why a feature is suspicious
func Reason(f features.Feature) string {
	if r, ok := reasons[f]; ok {
		return r
	}
	return Describe(f)
}
