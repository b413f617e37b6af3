package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestEvaluate(t *testing.T) {
	const currentYear = 2026

	tests := []struct {
		name     string
		rating   *float64
		joinYear *int
		want     Level
	}{
		{"low rating", ptr(90.0), nil, Danger},
		{"low rating beats new account", ptr(94.9), ptr(2026), Danger},
		{"low rating with old account", ptr(80.0), ptr(2010), Danger},
		{"good rating new account", ptr(99.0), ptr(2025), Warning},
		{"threshold rating new account", ptr(95.0), ptr(2026), Warning},
		{"new account without rating", nil, ptr(2026), Warning},
		{"good rating old account", ptr(99.6), ptr(2020), Good},
		{"two year old account", ptr(95.0), ptr(2024), Good},
		{"rating only", ptr(100.0), nil, Good},
		{"old account only", nil, ptr(2015), Good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := Evaluate(tt.rating, tt.joinYear, currentYear)
			require.True(t, ok)
			assert.Equal(t, tt.want, a.Level)
		})
	}
}

func TestEvaluate_NoSignals(t *testing.T) {
	_, ok := Evaluate(nil, nil, 2026)
	assert.False(t, ok)
}

func TestAdvisoryText(t *testing.T) {
	danger, _ := Evaluate(ptr(87.5), nil, 2026)
	assert.Equal(t, "alert-danger", danger.Class())
	assert.Equal(t, "警告：評價較低！", danger.Headline())
	assert.Equal(t, "賣家好評率僅 87.5%。", danger.Detail())
	assert.False(t, danger.Inline())

	warning, _ := Evaluate(nil, ptr(2025), 2026)
	assert.Equal(t, "alert-warning", warning.Class())
	assert.Equal(t, "🚩", warning.Icon())
	assert.Equal(t, "賣家於 2025 年加入。", warning.Detail())

	good, _ := Evaluate(ptr(99.6), ptr(2012), 2026)
	assert.Equal(t, "alert-success", good.Class())
	assert.Equal(t, "(99.6%)", good.Detail())
	assert.True(t, good.Inline())

	placeholder, _ := Evaluate(nil, ptr(2012), 2026)
	assert.Equal(t, "(--%)", placeholder.Detail())
}
