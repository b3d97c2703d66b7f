package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	cat := Catalog{
		{ID: "vendor/model-x"},
		{ID: "bare", Tiers: Tiers{Quality: "ultra", Speed: "warp"}, ContextWindow: -5},
	}
	require.NoError(t, Validate(cat))

	m := cat[0]
	assert.Equal(t, "vendor", m.Provider)
	assert.Equal(t, "vendor", m.Family)
	assert.Equal(t, "vendor/model-x", m.Label)
	assert.Equal(t, DefaultContextWindow, m.ContextWindow)
	assert.Equal(t, DefaultMaxOutputTokens, m.MaxOutputTokens)
	assert.True(t, m.HasText())
	assert.False(t, m.HasVision())
	assert.False(t, *m.Modalities.AudioIn)
	assert.False(t, *m.Modalities.AudioOut)
	assert.True(t, m.HasJSONMode())
	assert.True(t, m.HasTools())
	assert.False(t, m.HasReasoning())
	assert.Equal(t, Tiers{Quality: QualityMid, Speed: SpeedBalanced}, m.Tiers)
	assert.Equal(t, DefaultCurrency, m.Pricing.Currency)
	assert.NotNil(t, m.Meta)

	assert.Equal(t, "unknown", cat[1].Provider)
	assert.Equal(t, Tiers{Quality: QualityMid, Speed: SpeedBalanced}, cat[1].Tiers)
	assert.Equal(t, DefaultContextWindow, cat[1].ContextWindow)
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	cat := Catalog{{
		ID:         "a/b",
		Modalities: Modalities{Text: Ptr(false), Vision: Ptr(true)},
		Features:   Features{JSONMode: Ptr(false)},
		Tiers:      Tiers{Quality: QualityHigh, Speed: SpeedSlow},
		Pricing:    Pricing{InputPerMillion: Ptr(0.0), Currency: "EUR"},
		Limits:     Limits{TPM: Ptr(0)},
	}}
	require.NoError(t, Validate(cat))

	m := cat[0]
	assert.False(t, m.HasText())
	assert.True(t, m.HasVision())
	assert.False(t, m.HasJSONMode())
	assert.Equal(t, Tiers{Quality: QualityHigh, Speed: SpeedSlow}, m.Tiers)
	assert.Equal(t, "EUR", m.Pricing.Currency)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  ModelSpec
		field string
	}{
		{"missing id", ModelSpec{Label: "no id"}, "id"},
		{"negative input price", ModelSpec{ID: "a/b", Pricing: Pricing{InputPerMillion: Ptr(-1.0)}}, "pricing.input_per_million"},
		{"negative output price", ModelSpec{ID: "a/b", Pricing: Pricing{OutputPerMillion: Ptr(-0.5)}}, "pricing.output_per_million"},
		{"negative tpm", ModelSpec{ID: "a/b", Limits: Limits{TPM: Ptr(-1)}}, "limits.tpm"},
		{"negative rpm", ModelSpec{ID: "a/b", Limits: Limits{RPM: Ptr(-1)}}, "limits.rpm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Catalog{{ID: "ok/first"}, tt.spec})
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, 1, verr.Index)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	cat := Default()
	before := cat.Clone()
	require.NoError(t, Validate(cat))
	assert.Equal(t, before, cat)
}

func TestDefaultCatalog(t *testing.T) {
	cat := Default()
	require.Len(t, cat, 16)
	assert.Equal(t, "deepseek/deepseek-v3.2-exp", cat[0].ID)
	assert.Equal(t, SpeedFast, cat[0].Tiers.Speed)
	assert.Equal(t, "openai/gpt-5-pro", cat[15].ID)

	thinking, ok := cat.Find("qwen/qwen3-vl-235b-a22b-thinking")
	require.True(t, ok)
	assert.True(t, thinking.HasVision())
	assert.True(t, thinking.HasReasoning())

	for _, m := range cat {
		assert.Equal(t, defaultPricingSource, m.Pricing.PricingSource, m.ID)
	}

	// 每次返回独立副本
	cat[0].Label = "changed"
	assert.Equal(t, "Deepseek V3.2 Experimental", Default()[0].Label)
}

func TestNewSpec(t *testing.T) {
	m, err := NewSpec("vendor/m", "", true, true)
	require.NoError(t, err)
	assert.Equal(t, "vendor", m.Provider)
	assert.Equal(t, "vendor/m", m.Label)
	assert.True(t, m.HasVision())
	assert.True(t, m.HasReasoning())

	_, err = NewSpec("", "nameless", false, false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
}
