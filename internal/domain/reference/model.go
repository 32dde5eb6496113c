package reference

import "github.com/shopspring/decimal"

// Condition is a clinical finding a tooth can be charted with.
type Condition struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
	Code  string `json:"code" yaml:"code"`
}

// Procedure is a billable treatment, usually identified by its CDT code.
type Procedure struct {
	ID         int             `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	DefaultFee decimal.Decimal `json:"default_fee"`
}
