package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitlab.com/plantguard-2025.net/internal/domain"
)

func TestEqual(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"nil and nil", nil, nil, true},
		{"nil expected", nil, 0, false},
		{"nil actual", "", nil, false},
		{"trimmed strings", "  ok ", "ok", true},
		{"different strings", "ok", "ko", false},
		{"float rounding", 0.1 + 0.2, 0.3, true},
		{"below tolerance", 1.0, 1.0 + 5e-10, true},
		{"1e-8 apart", 1.0, 1.0 + 1e-8, false},
		{"int and float", 5, 5.0, true},
		{"string and int", "5", 5, false},
		{"slices", []any{1.0, "a"}, []any{1.0, "a"}, true},
		{"slices differ", []any{1.0}, []any{2.0}, false},
		{"maps", map[string]any{"a": 1.0}, map[string]any{"a": 1.0}, true},
		{"struct against mapping", map[string]any{"x": 1.0, "y": 2.0}, point{X: 1, Y: 2}, true},
		{"struct pointers", &point{1, 2}, &point{1, 2}, true},
		{"bools", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diff := Equal(tt.expected, tt.actual)
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.Empty(t, diff)
			} else {
				assert.NotEmpty(t, diff)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, "0%", empty.PassRate)

	s := Summarize([]domain.ExecutionResult{{Passed: true}, {Passed: false}, {Passed: true}})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, "66.7%", s.PassRate)

	assert.Equal(t, "100.0%", PassRate(1, 1))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12ms", FormatDuration(12*time.Millisecond+400*time.Microsecond))
	assert.Equal(t, "0ms", FormatDuration(0))
}
