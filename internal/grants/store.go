// Package grants holds the in-memory grant dataset and the matching
// heuristics used to pick records for prompt context.
package grants

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/springfield-isd/grants-assistant/internal/model"
)

// Store is the read-only grant dataset. It is built once at process start
// and never mutated, so it is safe for unlimited concurrent readers.
type Store struct {
	records   []model.Grant
	byID      map[string]model.Grant
	financial model.FinancialContext
}

// Load reads the grant dataset and the optional financial context document.
// A missing or unreadable file degrades to an empty store with a warning;
// startup never fails on absent data.
func Load(grantPath, financialPath string) *Store {
	s := &Store{byID: make(map[string]model.Grant)}

	raw, err := os.ReadFile(grantPath)
	if err != nil {
		zap.L().Warn("grants: dataset unavailable, grant context will be limited",
			zap.String("path", grantPath),
			zap.Error(err),
		)
	} else if err := json.Unmarshal(raw, &s.records); err != nil {
		zap.L().Warn("grants: dataset malformed, grant context will be limited",
			zap.String("path", grantPath),
			zap.Error(err),
		)
		s.records = nil
	}

	// Records without an opportunity ID cannot be looked up and are dropped.
	kept := s.records[:0]
	for _, g := range s.records {
		if g.OpportunityID == "" {
			continue
		}
		kept = append(kept, g)
		s.byID[g.OpportunityID] = g
	}
	s.records = kept
	zap.L().Info("grants: dataset loaded", zap.Int("records", len(s.records)))

	if financialPath != "" {
		s.financial = loadFinancial(financialPath)
	}

	return s
}

func loadFinancial(path string) model.FinancialContext {
	raw, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("grants: financial context unavailable",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}
	if !json.Valid(raw) {
		zap.L().Warn("grants: financial context malformed", zap.String("path", path))
		return nil
	}
	zap.L().Info("grants: financial context loaded", zap.Int("bytes", len(raw)))
	return model.FinancialContext(raw)
}

// All returns the full record list in stored order.
func (s *Store) All() []model.Grant { return s.records }

// ByID looks up a single grant by opportunity ID.
func (s *Store) ByID(id string) (model.Grant, bool) {
	g, ok := s.byID[id]
	return g, ok
}

// HasID reports whether an opportunity ID exists in the dataset.
func (s *Store) HasID(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of loaded records.
func (s *Store) Len() int { return len(s.records) }

// Financial returns the financial context document, or nil when not loaded.
func (s *Store) Financial() model.FinancialContext { return s.financial }
