package engine

import (
	"context"
	"errors"
	"slices"

	"github.com/FaveroFerreira/pg-migrator/internal/history"
	"github.com/FaveroFerreira/pg-migrator/internal/migration"
)

// Pair is a script together with its history record.
type Pair struct {
	Script migration.Script
	Record history.Record
}

// Plan classifies a catalog against the history table.
type Plan struct {
	Applied    []Pair             // checksums agree
	Pending    []migration.Script // catalog order
	Missing    []history.Record   // recorded, no script
	Mismatched []Pair             // recorded checksum differs

	drift []error // in version order
}

// HasDrift reports whether any record is missing or mismatched.
func (p *Plan) HasDrift() bool {
	return len(p.drift) > 0
}

// Err returns the error a run would fail validation with, or nil.
func (p *Plan) Err(ignoreMissing bool) error {
	for _, err := range p.drift {
		if ignoreMissing && errors.Is(err, ErrMissingMigration) {
			continue
		}

		return err
	}

	return nil
}

// Plan reads the history table and classifies catalog without applying
// anything. The history table is created if needed.
func (e *Engine) Plan(ctx context.Context, catalog migration.Catalog) (*Plan, error) {
	if err := e.store.EnsureTable(ctx); err != nil {
		return nil, err
	}

	records, err := e.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	return classify(catalog, records, e.order), nil
}

func classify(catalog migration.Catalog, records []history.Record, order migration.Order) *Plan {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b history.Record) int {
		return order.Compare(a.Version, b.Version)
	})

	p := &Plan{}
	recorded := make(map[string]struct{}, len(sorted))

	for _, r := range sorted {
		recorded[r.Version] = struct{}{}

		s, ok := catalog.Lookup(r.Version)
		if !ok {
			p.Missing = append(p.Missing, r)
			p.drift = append(p.drift, &MissingMigrationError{Version: r.Version})

			continue
		}

		if r.Checksum != s.Checksum {
			p.Mismatched = append(p.Mismatched, Pair{Script: s, Record: r})
			p.drift = append(p.drift, &ChecksumMismatchError{
				Version:  r.Version,
				Recorded: r.Checksum,
				Computed: s.Checksum,
			})

			continue
		}

		p.Applied = append(p.Applied, Pair{Script: s, Record: r})
	}

	for _, s := range catalog {
		if _, ok := recorded[s.Version]; !ok {
			p.Pending = append(p.Pending, s)
		}
	}

	return p
}
