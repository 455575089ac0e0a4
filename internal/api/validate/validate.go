package validate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nordlane/cloudcrm/internal/common"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Unwrap lets callers and the error writer treat field errors as bad
// requests.
func (e Errs) Unwrap() error { return common.ErrBadRequest }

func (e Errs) Details() interface{} { return []ErrField(e) }

// Collect drops nil checks and returns nil when every check passed.
func Collect(checks ...*ErrField) error {
	var errs Errs
	for _, c := range checks {
		if c != nil {
			errs = append(errs, *c)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func Email(field, value string) *ErrField {
	v := strings.TrimSpace(value)
	at := strings.LastIndex(v, "@")
	if at < 1 || at == len(v)-1 {
		return &ErrField{Field: field, Msg: "must be an email address"}
	}
	return nil
}

// Money parses a decimal amount string.
func Money(field, value string) (decimal.Decimal, *ErrField) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, &ErrField{Field: field, Msg: "must be a decimal amount"}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ErrField{Field: field, Msg: "must be > 0"}
	}
	return d, nil
}

func OneOf(field, value string, allowed ...string) *ErrField {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ErrField{Field: field, Msg: "must be one of " + strings.Join(allowed, ", ")}
}
