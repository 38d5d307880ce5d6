package booking

import (
	"fmt"
	"strings"

	"docassist/internal/domain"
)

// Kind is the type of booking being collected.
type Kind string

const (
	Appointment Kind = "appointment"
	Callback    Kind = "callback"
)

// FieldKind selects a field's prompt and validation rule.
type FieldKind string

const (
	FieldName    FieldKind = "name"
	FieldDate    FieldKind = "date"
	FieldTime    FieldKind = "time"
	FieldEmail   FieldKind = "email"
	FieldPhone   FieldKind = "phone"
	FieldPurpose FieldKind = "purpose"
)

// Field is one datum of a booking. Value is set only once Raw has passed
// validation, in its normalized form.
type Field struct {
	Kind  FieldKind `json:"kind"`
	Raw   string    `json:"raw,omitempty"`
	Value string    `json:"value,omitempty"`
}

// Filled reports whether the field holds a validated value.
func (f Field) Filled() bool { return f.Value != "" }

type fieldSpec struct {
	label  string
	prompt string
}

var fieldSpecs = map[FieldKind]fieldSpec{
	FieldName:    {"Name", "**What's your full name?**"},
	FieldDate:    {"Date", "**When would you like the appointment?**\n(e.g., '2024-12-25', 'tomorrow', 'next Monday')"},
	FieldTime:    {"Time", "**What time would you prefer?**\n(e.g., '10:30', '2:00 PM', '14:00')"},
	FieldEmail:   {"Email", "**What's your email address?**"},
	FieldPhone:   {"Phone", "**What's your phone number?**"},
	FieldPurpose: {"Purpose", "**What's the purpose of your appointment?**"},
}

// Label is the human name of the field kind.
func (k FieldKind) Label() string {
	if s, ok := fieldSpecs[k]; ok {
		return s.label
	}
	return string(k)
}

// Prompt is the question asked to collect the field.
func (k FieldKind) Prompt() string {
	if s, ok := fieldSpecs[k]; ok {
		return s.prompt
	}
	return fmt.Sprintf("**Please enter your %s.**", k)
}

// ParseFieldKinds converts configured field names into a sequence.
// Unknown or repeated names are a configuration error.
func ParseFieldKinds(names []string) ([]FieldKind, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty booking field sequence", domain.ErrConfiguration)
	}
	seen := make(map[FieldKind]bool, len(names))
	out := make([]FieldKind, 0, len(names))
	for _, n := range names {
		k := FieldKind(strings.ToLower(strings.TrimSpace(n)))
		if _, ok := fieldSpecs[k]; !ok {
			return nil, fmt.Errorf("%w: unknown booking field %q", domain.ErrConfiguration, n)
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: booking field %q listed twice", domain.ErrConfiguration, n)
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}
