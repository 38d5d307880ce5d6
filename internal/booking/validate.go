package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docassist/internal/domain"
)

// Constraints are the business rules applied while validating fields.
type Constraints struct {
	Today          time.Time
	OpenAt         int // minutes after midnight, inclusive
	CloseAt        int // minutes after midnight, exclusive
	MinPhoneDigits int
	MaxPhoneDigits int
}

// ValidationError is returned when a field value is rejected.
// Hint is shown to the user as-is.
type ValidationError struct {
	Field FieldKind
	Hint  string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Hint)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{domain.ErrValidation, e.Err}
	}
	return []error{domain.ErrValidation}
}

type validateFunc func(raw string, c Constraints) (string, error)

var validators = map[FieldKind]validateFunc{
	FieldName:    validateName,
	FieldDate:    validateDate,
	FieldTime:    validateTime,
	FieldEmail:   validateEmail,
	FieldPhone:   validatePhone,
	FieldPurpose: validatePurpose,
}

// Validate checks raw for the given field kind and returns its normalized
// value. Rejections are *ValidationError.
func Validate(kind FieldKind, raw string, c Constraints) (string, error) {
	fn, ok := validators[kind]
	if !ok {
		return "", fmt.Errorf("%w: no validator for field %q", domain.ErrConfiguration, kind)
	}
	return fn(strings.TrimSpace(raw), c)
}

var (
	validate  = validator.New()
	titleCase = cases.Title(language.English)
	phoneRe   = regexp.MustCompile(`^\+?[0-9][0-9 ()\-.]*$`)
)

func invalid(kind FieldKind, hint string) error {
	return &ValidationError{Field: kind, Hint: hint}
}

func validateName(raw string, _ Constraints) (string, error) {
	parts := strings.Fields(raw)
	if len(parts) < 2 {
		return "", invalid(FieldName, "Please enter your full name (first and last name).")
	}
	for _, p := range parts {
		hasLetter := false
		for _, r := range p {
			switch {
			case unicode.IsLetter(r):
				hasLetter = true
			case r == '\'' || r == '-' || r == '.':
			default:
				return "", invalid(FieldName, "Names can only contain letters, spaces, hyphens and apostrophes.")
			}
		}
		if !hasLetter {
			return "", invalid(FieldName, "Please enter your full name (first and last name).")
		}
	}
	return titleCase.String(strings.Join(parts, " ")), nil
}

func validateEmail(raw string, _ Constraints) (string, error) {
	email := strings.ToLower(raw)
	at := strings.LastIndexByte(email, '@')
	if err := validate.Var(email, "required,email"); err != nil || at < 0 || !strings.Contains(email[at:], ".") {
		return "", invalid(FieldEmail, "Please enter a valid email address (e.g., name@example.com).")
	}
	return email, nil
}

func validatePhone(raw string, c Constraints) (string, error) {
	hint := fmt.Sprintf("Please enter a valid phone number (%d-%d digits, e.g., +1 555 123 4567).", c.MinPhoneDigits, c.MaxPhoneDigits)
	if !phoneRe.MatchString(raw) {
		return "", invalid(FieldPhone, hint)
	}
	var b strings.Builder
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
	}
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < c.MinPhoneDigits || digits > c.MaxPhoneDigits {
		return "", invalid(FieldPhone, hint)
	}
	return b.String(), nil
}

func validateDate(raw string, c Constraints) (string, error) {
	d, err := ParseDate(raw, c.Today)
	if err != nil {
		return "", &ValidationError{
			Field: FieldDate,
			Hint:  "I couldn't understand that date. Try '2024-12-25', 'tomorrow' or 'next Monday'.",
			Err:   fmt.Errorf("%w: %v", domain.ErrParseFailure, err),
		}
	}
	if d.Before(midnight(c.Today)) {
		return "", invalid(FieldDate, "That date is in the past. Please choose today or a later date.")
	}
	return d.Format("2006-01-02"), nil
}

func validateTime(raw string, c Constraints) (string, error) {
	h, m, err := ParseTime(raw)
	if err != nil {
		return "", &ValidationError{
			Field: FieldTime,
			Hint:  "I couldn't understand that time. Try '10:30', '2:00 PM' or '14:00'.",
			Err:   fmt.Errorf("%w: %v", domain.ErrParseFailure, err),
		}
	}
	if mins := h*60 + m; mins < c.OpenAt || mins >= c.CloseAt {
		return "", invalid(FieldTime, fmt.Sprintf("We're open %s to %s. Please choose a time within business hours.",
			FormatMinutes(c.OpenAt), FormatMinutes(c.CloseAt)))
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func validatePurpose(raw string, _ Constraints) (string, error) {
	n := len([]rune(raw))
	if n < 5 {
		return "", invalid(FieldPurpose, "Please describe the purpose in a few words.")
	}
	if n > 500 {
		return "", invalid(FieldPurpose, "Please keep the purpose under 500 characters.")
	}
	return strings.Join(strings.Fields(raw), " "), nil
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: bad clock time %q", domain.ErrConfiguration, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes after midnight as "HH:MM".
func FormatMinutes(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
