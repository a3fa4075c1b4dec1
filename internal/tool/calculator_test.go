package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"-(2 + 3)", -5},
		{"1.5 * 2", 3},
		{"100 - 99.5", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalExpression(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"letters", "2 + x"},
		{"exponent", "2 ** 3"},
		{"divide by zero", "1 / 0"},
		{"mod by zero", "1 % 0"},
		{"dangling operator", "2 +"},
		{"call syntax", "2(3)"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalExpression(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestCalculatorHandler(t *testing.T) {
	_, handler := calculatorTool()

	raw, err := handler(context.Background(), `{"expression":"6999 * 2"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.True(t, res.Success)

	data := res.Data.(map[string]interface{})
	assert.Equal(t, "6999 * 2", data["expression"])
	assert.Equal(t, float64(13998), data["result"])
	assert.Equal(t, "6999 * 2 = 13998", res.Message)
}

func TestCalculatorHandlerRejectsBadArgs(t *testing.T) {
	_, handler := calculatorTool()

	raw, err := handler(context.Background(), `{"expression":"rm -rf /"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unsupported character")

	raw, err = handler(context.Background(), `{}`)
	require.NoError(t, err)
	res = decodeResult(t, raw)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")

	raw, err = handler(context.Background(), `not json`)
	require.NoError(t, err)
	res = decodeResult(t, raw)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "parse arguments")
}
