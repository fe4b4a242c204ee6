package models

import "strings"

// SupportedSubjects is the fixed set of subjects a placement test can be run for.
var SupportedSubjects = []string{
	"Mathematics",
	"English",
	"Science",
	"Physics",
	"Chemistry",
	"Biology",
	"History",
	"Geography",
	"Computer Science",
}

// NormalizeSubject returns the canonical spelling of a supported subject,
// matching case-insensitively. ok is false for unknown subjects.
func NormalizeSubject(subject string) (string, bool) {
	subject = strings.TrimSpace(subject)
	for _, s := range SupportedSubjects {
		if strings.EqualFold(s, subject) {
			return s, true
		}
	}
	return "", false
}
