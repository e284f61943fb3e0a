package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationStore_LoadDefaultsWhenMissing(t *testing.T) {
	store := NewCalibrationStore(newMockKV(), testLogger())
	assert.Equal(t, domain.DefaultScoringConfig(), store.Load(context.Background()))
}

func TestCalibrationStore_LoadDefaultsOnReadError(t *testing.T) {
	kv := newMockKV()
	kv.getErr = errors.New("disk gone")
	store := NewCalibrationStore(kv, testLogger())
	assert.Equal(t, domain.DefaultScoringConfig(), store.Load(context.Background()))
}

func TestCalibrationStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	store := NewCalibrationStore(kv, testLogger())

	cfg := domain.DefaultScoringConfig()
	cfg.Impact.Size = 0.9
	cfg.Risk.Primary = 2 // clamped on save
	require.NoError(t, store.Save(ctx, cfg))

	got := store.Load(ctx)
	assert.Equal(t, 0.9, got.Impact.Size)
	assert.Equal(t, 1.0, got.Risk.Primary)
}

func TestCalibrationStore_SaveError(t *testing.T) {
	kv := newMockKV()
	kv.setErr = errors.New("read-only")
	store := NewCalibrationStore(kv, testLogger())

	err := store.Save(context.Background(), domain.DefaultScoringConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestCalibrationStore_SetWeightAndReset(t *testing.T) {
	ctx := context.Background()
	store := NewCalibrationStore(newMockKV(), testLogger())

	cfg, err := store.SetWeight(ctx, "risk", "unique", 0.7)
	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.Risk.Unique)
	assert.Equal(t, 0.7, store.Load(ctx).Risk.Unique)

	_, err = store.SetWeight(ctx, "risk", "bogus", 0.1)
	assert.ErrorIs(t, err, domain.ErrUnknownWeight)

	cfg, err = store.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultScoringConfig(), cfg)
	assert.Equal(t, domain.DefaultScoringConfig(), store.Load(ctx))
}

func TestCalibrationStore_SetWeightKeepsValueWhenSaveFails(t *testing.T) {
	kv := newMockKV()
	kv.setErr = errors.New("quota")
	store := NewCalibrationStore(kv, testLogger())

	cfg, err := store.SetWeight(context.Background(), "impact", "width", 0.4)
	require.Error(t, err)
	assert.Equal(t, 0.4, cfg.Impact.Width)
}

func TestMergeCalibration(t *testing.T) {
	def := domain.DefaultScoringConfig()

	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, cfg domain.ScoringConfig)
	}{
		{
			name:    "partially corrupt",
			payload: `{"impact":{"size":"x"}}`,
			check: func(t *testing.T, cfg domain.ScoringConfig) {
				assert.Equal(t, def, cfg)
			},
		},
		{
			name:    "mixed valid and invalid",
			payload: `{"impact":{"size":0.2,"usage":null},"risk":{"usage":7,"unique":-1}}`,
			check: func(t *testing.T, cfg domain.ScoringConfig) {
				assert.Equal(t, 0.2, cfg.Impact.Size)
				assert.Equal(t, def.Impact.Usage, cfg.Impact.Usage)
				assert.Equal(t, 1.0, cfg.Risk.Usage)
				assert.Equal(t, 0.0, cfg.Risk.Unique)
				assert.Equal(t, def.Risk.Primary, cfg.Risk.Primary)
			},
		},
		{
			name:    "groups of wrong type",
			payload: `{"impact":[1,2],"risk":"high"}`,
			check: func(t *testing.T, cfg domain.ScoringConfig) {
				assert.Equal(t, def, cfg)
			},
		},
		{
			name:    "not json",
			payload: `{{{`,
			wantErr: true,
			check: func(t *testing.T, cfg domain.ScoringConfig) {
				assert.Equal(t, def, cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := MergeCalibration([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestCalibrationStore_LoadCorruptPayload(t *testing.T) {
	kv := newMockKV()
	kv.data[CalibrationKey] = `{"impact":{"size":"x"},"risk":{"usage":0.3}}`
	store := NewCalibrationStore(kv, testLogger())

	cfg := store.Load(context.Background())
	assert.Equal(t, domain.DefaultScoringConfig().Impact, cfg.Impact)
	assert.Equal(t, 0.3, cfg.Risk.Usage)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"impact"`)
}
