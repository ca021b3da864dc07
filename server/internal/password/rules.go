package password

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SpecialChars is the fixed set of characters that satisfy the special
// character rule. Other Unicode punctuation does not count.
const SpecialChars = "!@#$%^&*(),.?\":{}|<>_-+=[]\\/;'`~"

// DefaultMinLength is the minimum length enforced by DefaultRules.
const DefaultMinLength = 8

// Rules is the password complexity policy. A zero MinLength disables the
// length rule.
type Rules struct {
	MinLength          int  `yaml:"min_length" json:"min_length"`
	RequireUppercase   bool `yaml:"require_uppercase" json:"require_uppercase"`
	RequireLowercase   bool `yaml:"require_lowercase" json:"require_lowercase"`
	RequireNumber      bool `yaml:"require_number" json:"require_number"`
	RequireSpecialChar bool `yaml:"require_special_char" json:"require_special_char"`
}

// DefaultRules returns the policy applied to admin accounts unless the
// configuration overrides it.
func DefaultRules() Rules {
	return Rules{
		MinLength:          DefaultMinLength,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireNumber:      true,
		RequireSpecialChar: true,
	}
}

// Result is the outcome of one validation call.
type Result struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors"`
}

// Validate checks pw against every enabled rule. All rules are evaluated even
// after one fails, so Errors lists every violation in rule order.
func Validate(pw string, rules Rules) Result {
	errs := make([]string, 0, 5)
	c := classify(pw)

	if rules.MinLength > 0 && c.length < rules.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", rules.MinLength))
	}
	if rules.RequireUppercase && !c.upper {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if rules.RequireLowercase && !c.lower {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if rules.RequireNumber && !c.digit {
		errs = append(errs, "Password must contain at least one number")
	}
	if rules.RequireSpecialChar && !c.special {
		errs = append(errs, "Password must contain at least one special character")
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ValidatePassword checks pw against DefaultRules.
func ValidatePassword(pw string) Result {
	return Validate(pw, DefaultRules())
}

// classes records which character classes a password contains.
type classes struct {
	length  int
	upper   bool
	lower   bool
	digit   bool
	special bool
}

func classify(pw string) classes {
	c := classes{length: utf8.RuneCountInString(pw)}
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case strings.ContainsRune(SpecialChars, r):
			c.special = true
		}
	}
	return c
}
