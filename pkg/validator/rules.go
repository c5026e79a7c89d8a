package validator

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required", TranslationKey: "validation.required"},
	}
}

// MaxLen counts runes, so accented names are measured as typed.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters", max),
			TranslationKey: "validation.max_length",
		},
	}
}

func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != strings.TrimSpace(value) {
				return false
			}
			_, domain, ok := strings.Cut(addr.Address, "@")
			return ok && strings.Contains(domain, ".") &&
				!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address", TranslationKey: "validation.email"},
	}
}

func PositiveAmount[T Numeric](field string, value T) Rule {
	return Rule{
		Check: func() bool { return value > 0 },
		Error: ValidationError{Field: field, Message: "amount must be positive", TranslationKey: "validation.positive_amount"},
	}
}

func NonNegativeAmount[T Numeric](field string, value T) Rule {
	return Rule{
		Check: func() bool { return value >= 0 },
		Error: ValidationError{Field: field, Message: "amount cannot be negative", TranslationKey: "validation.non_negative_amount"},
	}
}

func ValidPercentage(field string, value float64) Rule {
	return Rule{
		Check: func() bool { return value >= 0 && value <= 100 },
		Error: ValidationError{Field: field, Message: "percentage must be between 0% and 100%", TranslationKey: "validation.percentage"},
	}
}

func Between[T Numeric](field string, value, min, max T) Rule {
	return Rule{
		Check: func() bool { return value >= min && value <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be between %v and %v", min, max),
			TranslationKey: "validation.between",
		},
	}
}

func RequiredTime(field string, value time.Time) Rule {
	return Rule{
		Check: func() bool { return !value.IsZero() },
		Error: ValidationError{Field: field, Message: "field is required", TranslationKey: "validation.required"},
	}
}

func TimeAfter(field string, value, after time.Time) Rule {
	return Rule{
		Check: func() bool { return value.After(after) },
		Error: ValidationError{Field: field, Message: "must be after the start", TranslationKey: "validation.time_after"},
	}
}

func OneOf[T comparable](field string, value T, options ...T) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(options, value) },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be one of %v", options),
			TranslationKey: "validation.one_of",
		},
	}
}

// MonthRef accepts "yyyy-MM".
func MonthRef(field, value string) Rule {
	return Rule{
		Check: func() bool {
			_, err := time.Parse("2006-01", value)
			return err == nil
		},
		Error: ValidationError{Field: field, Message: "must be a month in yyyy-MM format", TranslationKey: "validation.month"},
	}
}
