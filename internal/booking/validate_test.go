package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docassist/internal/domain"
)

var testConstraints = Constraints{
	Today:          testToday,
	OpenAt:         9 * 60,
	CloseAt:        17 * 60,
	MinPhoneDigits: 7,
	MaxPhoneDigits: 15,
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		kind  FieldKind
		raw   string
		want  string
		valid bool
	}{
		{"full name", FieldName, "jane  doe", "Jane Doe", true},
		{"three tokens", FieldName, "ada KING lovelace", "Ada King Lovelace", true},
		{"single token", FieldName, "J", "", false},
		{"digits in name", FieldName, "R2 D2", "", false},
		{"email", FieldEmail, "John@Example.com", "john@example.com", true},
		{"email without tld", FieldEmail, "john@x", "", false},
		{"not an email", FieldEmail, "john", "", false},
		{"international phone", FieldPhone, "+1 555-123-4567", "+15551234567", true},
		{"local phone", FieldPhone, "555 1234", "5551234", true},
		{"short phone", FieldPhone, "12345", "", false},
		{"long phone", FieldPhone, "+1234567890123456", "", false},
		{"letters in phone", FieldPhone, "555-CALL-NOW", "", false},
		{"relative date", FieldDate, "tomorrow", "2025-03-13", true},
		{"today", FieldDate, "today", "2025-03-12", true},
		{"past date", FieldDate, "2025-03-11", "", false},
		{"time in hours", FieldTime, "2:00 PM", "14:00", true},
		{"opening time", FieldTime, "9am", "09:00", true},
		{"closing time", FieldTime, "17:00", "", false},
		{"too early", FieldTime, "7:30", "", false},
		{"purpose", FieldPurpose, "  Annual   review ", "Annual review", true},
		{"short purpose", FieldPurpose, "hi", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(tc.kind, tc.raw, testConstraints)
			if !tc.valid {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tc.kind, verr.Field)
				assert.NotEmpty(t, verr.Hint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidate_NamePunctuation(t *testing.T) {
	_, err := Validate(FieldName, "Mary-Jane O'Neil", testConstraints)
	assert.NoError(t, err)
	_, err = Validate(FieldName, "- '", testConstraints)
	assert.Error(t, err)
}

func TestValidate_ParseFailuresAreMarked(t *testing.T) {
	_, err := Validate(FieldDate, "whenever", testConstraints)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrParseFailure)

	_, err = Validate(FieldTime, "3", testConstraints)
	assert.ErrorIs(t, err, domain.ErrParseFailure)

	_, err = Validate(FieldDate, "2025-01-01", testConstraints)
	assert.NotErrorIs(t, err, domain.ErrParseFailure)
}

func TestValidate_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		_, err := Validate(FieldEmail, "john@x", testConstraints)
		assert.Error(t, err)
		v, err := Validate(FieldEmail, "john@example.com", testConstraints)
		require.NoError(t, err)
		assert.Equal(t, "john@example.com", v)
	}
}

func TestParseFieldKinds(t *testing.T) {
	kinds, err := ParseFieldKinds([]string{"Name", " phone ", "email"})
	require.NoError(t, err)
	assert.Equal(t, []FieldKind{FieldName, FieldPhone, FieldEmail}, kinds)

	for _, bad := range [][]string{nil, {"name", "shoe size"}, {"name", "name"}} {
		_, err := ParseFieldKinds(bad)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	}
}
