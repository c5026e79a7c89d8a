package validator_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("no failures is nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validator.Apply(
			validator.Required("name", "Escola Azul"),
			validator.NonNegativeAmount("hourlyRate", 80.0),
		))
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("name", "  "),
			validator.ValidPercentage("allocationPercentage", 120),
			validator.Between("dasDueDate", 0, 1, 31),
		)
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		var ve validator.ValidationErrors
		require.True(t, errors.As(err, &ve))
		assert.Len(t, ve, 3)
		assert.True(t, ve.Has("name"))
		assert.Equal(t, []string{"must be between 1 and 31"}, ve.Fields()["dasDueDate"])
	})

	t.Run("when skips optional fields", func(t *testing.T) {
		t.Parallel()
		email := ""
		assert.NoError(t, validator.Apply(validator.When(email != "", validator.ValidEmail("email", email))))
		email = "nope"
		assert.Error(t, validator.Apply(validator.When(email != "", validator.ValidEmail("email", email))))
	})
}

func TestRules(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rule validator.Rule
		ok   bool
	}{
		{"email ok", validator.ValidEmail("email", "ana@escola.com.br"), true},
		{"email without domain dot", validator.ValidEmail("email", "ana@localhost"), false},
		{"email with display name", validator.ValidEmail("email", "Ana <ana@escola.com>"), false},
		{"max len counts runes", validator.MaxLen("name", "Férias", 6), true},
		{"positive amount", validator.PositiveAmount("totalValue", 0.0), false},
		{"time after", validator.TimeAfter("endTime", start.Add(time.Hour), start), true},
		{"time equal is not after", validator.TimeAfter("endTime", start, start), false},
		{"required time", validator.RequiredTime("startTime", time.Time{}), false},
		{"one of", validator.OneOf("status", "Completed", "Scheduled", "Completed", "Cancelled"), true},
		{"one of miss", validator.OneOf("status", "Done", "Scheduled", "Completed"), false},
		{"month ref", validator.MonthRef("month", "2025-03"), true},
		{"month ref bad", validator.MonthRef("month", "03/2025"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.ok, tt.rule.Check())
		})
	}
}
