package services

import (
	"time"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

// ScoringConfig holds the tunable ranking parameters.
// The exact lexical formula and weighting constants are deliberately
// configuration-driven rather than hard-coded.
type ScoringConfig struct {
	// SemanticWeight and StructuralWeight combine the two normalized
	// signals for the hybrid strategy. They should sum to 1.
	SemanticWeight   float64
	StructuralWeight float64

	// ScoreThreshold is the minimum vector similarity; candidates
	// below it are discarded, not down-ranked.
	ScoreThreshold float64

	// PriorityMultipliers scale combined scores by source trust tier.
	PriorityMultipliers map[domain.Priority]float64

	// TypeWeights bias the structural signal by chunk type.
	TypeWeights map[domain.ChunkType]float64

	// DedupThreshold is the token-overlap ratio above which adjacent
	// same-file chunks collapse to the higher-scoring one.
	DedupThreshold float64

	// CandidateCeiling caps the candidate set before budgeting.
	// Exceeding it sets Truncated on the response, never silently.
	CandidateCeiling int

	// SearchTimeout bounds each external call (embed, index search).
	SearchTimeout time.Duration

	// OverviewParagraphLimit is the max length of a paragraph still
	// considered "short" by overview-level assembly.
	OverviewParagraphLimit int
}

// DefaultScoringConfig returns the default tuning.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SemanticWeight:   0.7,
		StructuralWeight: 0.3,
		ScoreThreshold:   0.35,
		PriorityMultipliers: map[domain.Priority]float64{
			domain.PriorityHigh:   1.2,
			domain.PriorityMedium: 1.0,
			domain.PriorityLow:    0.8,
		},
		TypeWeights: map[domain.ChunkType]float64{
			domain.ChunkTypeHeading:   2.0,
			domain.ChunkTypeCode:      1.2,
			domain.ChunkTypeParagraph: 1.0,
			domain.ChunkTypeList:      1.0,
			domain.ChunkTypeTable:     1.0,
		},
		DedupThreshold:         0.85,
		CandidateCeiling:       1000,
		SearchTimeout:          30 * time.Second,
		OverviewParagraphLimit: 400,
	}
}

// LoadScoringConfig overlays values from the config store onto the
// defaults. Missing keys keep their default.
func LoadScoringConfig(store driven.ConfigStore) ScoringConfig {
	cfg := DefaultScoringConfig()
	if store == nil {
		return cfg
	}

	// Weights and thresholds may legitimately be zero (structural_weight
	// = 0 is pure-semantic hybrid), so key presence decides, not the
	// value. Negative values stay rejected.
	if v, ok := lookupFloat(store, "scoring.semantic_weight"); ok {
		cfg.SemanticWeight = v
	}
	if v, ok := lookupFloat(store, "scoring.structural_weight"); ok {
		cfg.StructuralWeight = v
	}
	if v, ok := lookupFloat(store, "scoring.score_threshold"); ok {
		cfg.ScoreThreshold = v
	}
	if v, ok := lookupFloat(store, "scoring.dedup_threshold"); ok {
		cfg.DedupThreshold = v
	}
	if v := store.GetInt("scoring.candidate_ceiling"); v > 0 {
		cfg.CandidateCeiling = v
	}
	if v := store.GetInt("scoring.search_timeout_seconds"); v > 0 {
		cfg.SearchTimeout = time.Duration(v) * time.Second
	}
	for _, tier := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		if v, ok := lookupFloat(store, "scoring.priority."+string(tier)); ok {
			cfg.PriorityMultipliers[tier] = v
		}
	}
	return cfg
}

// lookupFloat reports a float key's value only when the key is present
// and non-negative.
func lookupFloat(store driven.ConfigStore, key string) (float64, bool) {
	if _, present := store.Get(key); !present {
		return 0, false
	}
	v := store.GetFloat(key)
	if v < 0 {
		return 0, false
	}
	return v, true
}
