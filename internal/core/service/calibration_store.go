package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/guillermoBallester/indexlens/internal/core/port"
)

// CalibrationKey is the key the scoring weights are persisted under.
const CalibrationKey = "scoring.calibration"

// CalibrationStore loads and persists the user-tunable ScoringConfig.
// Persistence is best-effort: Load never fails, and Save reports errors the
// caller is free to ignore.
type CalibrationStore struct {
	kv     port.KeyValueStore
	logger *slog.Logger
}

func NewCalibrationStore(kv port.KeyValueStore, logger *slog.Logger) *CalibrationStore {
	return &CalibrationStore{kv: kv, logger: logger}
}

// Load reads the persisted weights and merges them field by field over the
// defaults. Missing, unreadable or malformed data degrades to defaults.
func (s *CalibrationStore) Load(ctx context.Context) domain.ScoringConfig {
	raw, ok, err := s.kv.Get(ctx, CalibrationKey)
	if err != nil {
		s.logger.WarnContext(ctx, "calibration load failed, using defaults",
			slog.String("error.message", err.Error()),
		)
		return domain.DefaultScoringConfig()
	}
	if !ok {
		return domain.DefaultScoringConfig()
	}

	cfg, err := MergeCalibration([]byte(raw))
	if err != nil {
		s.logger.WarnContext(ctx, "stored calibration is malformed, using defaults",
			slog.String("error.message", err.Error()),
		)
	}
	return cfg
}

// Save clamps and persists cfg.
func (s *CalibrationStore) Save(ctx context.Context, cfg domain.ScoringConfig) error {
	data, err := json.Marshal(cfg.Clamped())
	if err != nil {
		return fmt.Errorf("encoding calibration: %w", err)
	}
	if err := s.kv.Set(ctx, CalibrationKey, string(data)); err != nil {
		return fmt.Errorf("persisting calibration: %w", err)
	}
	return nil
}

// Reset restores and persists the default weights. The defaults are returned
// even when persisting them fails.
func (s *CalibrationStore) Reset(ctx context.Context) (domain.ScoringConfig, error) {
	cfg := domain.DefaultScoringConfig()
	return cfg, s.Save(ctx, cfg)
}

// SetWeight applies a single slider change on top of the current weights and
// persists the result. The updated config is returned even when saving fails.
func (s *CalibrationStore) SetWeight(ctx context.Context, group, key string, value float64) (domain.ScoringConfig, error) {
	cfg, err := s.Load(ctx).WithWeight(group, key, value)
	if err != nil {
		return cfg, err
	}
	return cfg, s.Save(ctx, cfg)
}

// MergeCalibration decodes a stored payload over the defaults. Each weight is
// taken only when it is a finite number, then clamped to [0,1]. The returned
// config is always fully populated; err reports a payload that was not a JSON
// object at all.
func MergeCalibration(data []byte) (domain.ScoringConfig, error) {
	cfg := domain.DefaultScoringConfig()

	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return cfg, fmt.Errorf("decoding calibration: %w", err)
	}

	impact, _ := root["impact"].(map[string]any)
	risk, _ := root["risk"].(map[string]any)

	cfg.Impact.Size = pickWeight(impact, "size", cfg.Impact.Size)
	cfg.Impact.Usage = pickWeight(impact, "usage", cfg.Impact.Usage)
	cfg.Impact.Width = pickWeight(impact, "width", cfg.Impact.Width)
	cfg.Risk.Usage = pickWeight(risk, "usage", cfg.Risk.Usage)
	cfg.Risk.Unique = pickWeight(risk, "unique", cfg.Risk.Unique)
	cfg.Risk.Primary = pickWeight(risk, "primary", cfg.Risk.Primary)

	return cfg.Clamped(), nil
}

func pickWeight(group map[string]any, key string, def float64) float64 {
	v, ok := group[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
