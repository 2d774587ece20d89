package models

import (
	"regexp"
	"strings"
)

// jobTitleSuffix matches the numeric disambiguators the source data appends
// to job titles: "Engineer (2)", "Analyst - 3", "Developer 1.2".
var jobTitleSuffix = regexp.MustCompile(`(?:\s*(?:- )*\(*\d+(?:\.\d+)*\)*)+$`)

// CleanJobTitle strips a trailing numeric or parenthesized numeric suffix.
func CleanJobTitle(title string) string {
	cleaned := strings.TrimSpace(jobTitleSuffix.ReplaceAllString(title, ""))
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}
