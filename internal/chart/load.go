package chart

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
)

// AccountSpec is one account in a chart file.
type AccountSpec struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// File is the YAML layout of a chart of accounts, grouped by type.
type File struct {
	Assets      []AccountSpec `yaml:"assets"`
	Liabilities []AccountSpec `yaml:"liabilities"`
	Equity      []AccountSpec `yaml:"equity"`
	Revenue     []AccountSpec `yaml:"revenue"`
	Expenses    []AccountSpec `yaml:"expenses"`
}

// LoadResult lists the codes a LoadChart call created and skipped.
type LoadResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// Entry is a chart account with the type taken from its group.
type Entry struct {
	AccountSpec
	Type models.AccountType
}

// ParseFile decodes a chart file and rejects duplicate codes within it.
func ParseFile(data []byte) ([]Entry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse chart YAML: %w", err)
	}

	groups := []struct {
		typ   models.AccountType
		specs []AccountSpec
	}{
		{models.AccountTypeAsset, f.Assets},
		{models.AccountTypeLiability, f.Liabilities},
		{models.AccountTypeEquity, f.Equity},
		{models.AccountTypeRevenue, f.Revenue},
		{models.AccountTypeExpense, f.Expenses},
	}

	seen := make(map[string]bool)
	var out []Entry
	for _, g := range groups {
		for _, s := range g.specs {
			if seen[s.Code] {
				return nil, fmt.Errorf("%w: code %s appears twice in chart", ledgererr.ErrDuplicateCode, s.Code)
			}
			seen[s.Code] = true
			out = append(out, Entry{AccountSpec: s, Type: g.typ})
		}
	}
	return out, nil
}

// LoadChart seeds accounts from a YAML file in one atomic unit. Codes that
// already exist with the same type are skipped; a code that exists with a
// different type aborts the whole load.
func (r *Registry) LoadChart(ctx context.Context, path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read chart file: %w", err)
	}
	return r.LoadChartData(ctx, data)
}

// LoadChartData is LoadChart for in-memory YAML.
func (r *Registry) LoadChartData(ctx context.Context, data []byte) (LoadResult, error) {
	specs, err := ParseFile(data)
	if err != nil {
		return LoadResult{}, err
	}

	accounts := make([]models.Account, 0, len(specs))
	for _, s := range specs {
		a, err := r.newAccount(s.Code, s.Name, s.Type)
		if err != nil {
			return LoadResult{}, fmt.Errorf("chart account %q: %w", s.Code, err)
		}
		accounts = append(accounts, a)
	}

	var result LoadResult
	err = r.store.Update(ctx, func(tx interfaces.Tx) error {
		result = LoadResult{}
		for _, a := range accounts {
			existing, err := tx.FindAccountByCode(ctx, a.Code)
			if err == nil {
				if existing.Type != a.Type {
					return fmt.Errorf("%w: %s is %s, chart says %s", ledgererr.ErrChartConflict, a.Code, existing.Type, a.Type)
				}
				result.Skipped = append(result.Skipped, a.Code)
				continue
			}
			if !errors.Is(err, ledgererr.ErrAccountNotFound) {
				return err
			}
			if err := tx.InsertAccount(ctx, a); err != nil {
				return err
			}
			result.Created = append(result.Created, a.Code)
		}
		return nil
	})
	if err != nil {
		return LoadResult{}, err
	}

	r.logger.Info("chart loaded", "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}
