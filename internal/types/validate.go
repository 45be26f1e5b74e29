package types

import (
	"regexp"
	"strings"
	"time"
)

// MaxSprintDuration caps a sprint's span at six calendar months.
const MaxSprintDuration = 6 // months

// projectKeyPattern: 2-10 chars, leading letter, uppercase alnum plus
// underscore and hyphen. Input is uppercased before matching.
var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_-]{1,9}$`)

// reservedProjectKeys may not be used as project keys.
var reservedProjectKeys = map[string]struct{}{
	"API": {}, "ADMIN": {}, "ROOT": {}, "SYSTEM": {}, "TEST": {},
	"DEMO": {}, "SAMPLE": {}, "NULL": {}, "VOID": {}, "TEMP": {},
	"TMP": {}, "DELETE": {}, "REMOVE": {}, "DROP": {},
}

// NormalizeProjectKey uppercases and trims a raw project key.
func NormalizeProjectKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidateProjectKey checks a normalized project key against the pattern
// and the reserved-word list.
func ValidateProjectKey(key string) *ValidationError {
	v := NewValidationError()
	if !projectKeyPattern.MatchString(key) {
		v.Add("key", "must be 2-10 characters, start with a letter, and contain only uppercase letters, digits, underscore or hyphen")
		return v.failed()
	}
	if _, ok := reservedProjectKeys[key]; ok {
		v.Add("key", "is a reserved word")
	}
	return v.failed()
}

// dangerousNamePatterns are substrings blocked in free-text project names:
// path traversal sequences and shell metacharacters.
var dangerousNamePatterns = []string{
	"../", "..\\", ";", "|", "&", "$(", "`", "\x00",
}

// sensitivePathFragments block names referencing well-known OS paths.
var sensitivePathFragments = []string{
	"etc/passwd", "etc/shadow", "windows/system32", "boot.ini", ".ssh/",
}

// ValidateProjectName applies the denylist safety filter to a project name.
func ValidateProjectName(name string) *ValidationError {
	v := NewValidationError()
	if strings.TrimSpace(name) == "" {
		v.Add("name", "is required")
		return v.failed()
	}
	if len(name) > 200 {
		v.Add("name", "must be 200 characters or less")
		return v.failed()
	}
	for _, p := range dangerousNamePatterns {
		if strings.Contains(name, p) {
			v.Add("name", "contains a disallowed character sequence")
			return v.failed()
		}
	}
	lower := strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	for _, frag := range sensitivePathFragments {
		if strings.Contains(lower, frag) {
			v.Add("name", "references a restricted system path")
			return v.failed()
		}
	}
	return nil
}

// ValidateSprintDates checks the sprint date rules: end after start, start
// not before today, span at most six months. Each violation is reported
// against its field.
func ValidateSprintDates(start, end, now time.Time) *ValidationError {
	return validateSprintDates(start, end, now, true)
}

// ValidateSprintReschedule applies the same rules to an existing sprint's
// merged dates. The not-in-the-past rule only covers a start date the
// caller is actually changing; a running sprint keeps its old start.
func ValidateSprintReschedule(start, end, now time.Time, startChanged bool) *ValidationError {
	return validateSprintDates(start, end, now, startChanged)
}

func validateSprintDates(start, end, now time.Time, checkStart bool) *ValidationError {
	v := NewValidationError()
	if start.IsZero() {
		v.Add("startDate", "is required")
	}
	if end.IsZero() {
		v.Add("endDate", "is required")
	}
	if len(v.Fields) > 0 {
		return v
	}
	if !end.After(start) {
		v.Add("endDate", "must be after start date")
	}
	if checkStart {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if start.Before(today) {
			v.Add("startDate", "must not be in the past")
		}
	}
	if end.After(start.AddDate(0, MaxSprintDuration, 0)) {
		v.Add("endDate", "sprint may not span more than 6 months")
	}
	return v.failed()
}

// emailPattern is a syntactic sanity check, not full RFC 5322.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateCredentials checks registration input.
func ValidateCredentials(email, password string) *ValidationError {
	v := NewValidationError()
	if !emailPattern.MatchString(email) {
		v.Add("email", "must be a valid email address")
	}
	if len(password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	return v.failed()
}

// hexColorPattern matches #RRGGBB label colors.
var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateLabel checks label fields.
func ValidateLabel(name, color string) *ValidationError {
	v := NewValidationError()
	if strings.TrimSpace(name) == "" {
		v.Add("name", "is required")
	} else if len(name) > 50 {
		v.Add("name", "must be 50 characters or less")
	}
	if !hexColorPattern.MatchString(color) {
		v.Add("color", "must be a hex color like #ff8800")
	}
	return v.failed()
}

// failed returns the receiver when it holds any messages, nil otherwise.
// It keeps call sites free of typed-nil comparisons.
func (e *ValidationError) failed() *ValidationError {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
