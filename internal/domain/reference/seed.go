package reference

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Dataset is the content of the reference data file.
type Dataset struct {
	Conditions []*Condition
	Procedures []*Procedure
}

type datasetFile struct {
	Conditions []*Condition     `yaml:"conditions"`
	Procedures []procedureEntry `yaml:"procedures"`
}

type procedureEntry struct {
	ID         int    `yaml:"id"`
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	DefaultFee string `yaml:"default_fee"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFile reads and validates a reference data YAML file.
func LoadFile(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(raw)
}

// Parse decodes reference data. Fees are strings so they keep exact decimal
// precision.
func Parse(raw []byte) (*Dataset, error) {
	var f datasetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}

	ds := &Dataset{Conditions: f.Conditions}
	seen := make(map[int]bool)
	for _, c := range ds.Conditions {
		if c.ID <= 0 || c.Name == "" {
			return nil, fmt.Errorf("condition %d: id and name are required", c.ID)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("condition %d: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if !hexColor.MatchString(c.Color) {
			return nil, fmt.Errorf("condition %d: color %q is not #rrggbb", c.ID, c.Color)
		}
	}

	seen = make(map[int]bool)
	for _, e := range f.Procedures {
		if e.ID <= 0 || e.Code == "" || e.Name == "" {
			return nil, fmt.Errorf("procedure %d: id, code and name are required", e.ID)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("procedure %d: duplicate id", e.ID)
		}
		seen[e.ID] = true
		fee := decimal.Zero
		if e.DefaultFee != "" {
			d, err := decimal.NewFromString(e.DefaultFee)
			if err != nil {
				return nil, fmt.Errorf("procedure %d: default_fee %q: %w", e.ID, e.DefaultFee, err)
			}
			fee = d
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("procedure %d: default_fee must not be negative", e.ID)
		}
		ds.Procedures = append(ds.Procedures, &Procedure{
			ID:         e.ID,
			Code:       e.Code,
			Name:       e.Name,
			Category:   e.Category,
			DefaultFee: fee,
		})
	}
	return ds, nil
}

// Transactor runs fn atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Seed upserts every row of ds in one transaction.
func Seed(ctx context.Context, tx Transactor, repo Repository, ds *Dataset) error {
	return tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range ds.Conditions {
			if err := repo.UpsertCondition(ctx, c); err != nil {
				return fmt.Errorf("seed condition %d: %w", c.ID, err)
			}
		}
		for _, p := range ds.Procedures {
			if err := repo.UpsertProcedure(ctx, p); err != nil {
				return fmt.Errorf("seed procedure %d: %w", p.ID, err)
			}
		}
		return nil
	})
}
