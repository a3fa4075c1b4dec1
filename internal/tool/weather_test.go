package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherKnownCity(t *testing.T) {
	_, handler := weatherTool()

	raw, err := handler(context.Background(), `{"location":"北京","date":"2026-08-01"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.True(t, res.Success)

	data := res.Data.(map[string]interface{})
	assert.Equal(t, "北京", data["location"])
	assert.Equal(t, "101010100", data["city_code"])
	assert.Equal(t, "2026-08-01", data["date"])
	assert.Equal(t, "°C", data["unit"])

	temp := data["temperature"].(float64)
	assert.GreaterOrEqual(t, temp, float64(15))
	assert.LessOrEqual(t, temp, float64(35))
	assert.Contains(t, weatherConditions, data["condition"])
}

func TestWeatherDeterministic(t *testing.T) {
	_, handler := weatherTool()

	first, err := handler(context.Background(), `{"location":"上海","date":"2026-08-02"}`)
	require.NoError(t, err)
	second, err := handler(context.Background(), `{"location":"上海","date":"2026-08-02"}`)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := handler(context.Background(), `{"location":"上海","date":"2026-08-03"}`)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestWeatherFuzzyMatch(t *testing.T) {
	_, handler := weatherTool()

	raw, err := handler(context.Background(), `{"location":"北京市","date":"2026-08-01"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.True(t, res.Success)

	data := res.Data.(map[string]interface{})
	assert.Equal(t, "北京", data["location"])
}

func TestWeatherFahrenheit(t *testing.T) {
	_, handler := weatherTool()

	raw, err := handler(context.Background(), `{"location":"广州","date":"2026-08-01"}`)
	require.NoError(t, err)
	celsius := decodeResult(t, raw).Data.(map[string]interface{})["temperature"].(float64)

	raw, err = handler(context.Background(), `{"location":"广州","date":"2026-08-01","unit":"fahrenheit"}`)
	require.NoError(t, err)
	data := decodeResult(t, raw).Data.(map[string]interface{})
	assert.Equal(t, "°F", data["unit"])
	assert.InDelta(t, celsius*9/5+32, data["temperature"].(float64), 0.05)
}

func TestWeatherUnknownCity(t *testing.T) {
	_, handler := weatherTool()

	raw, err := handler(context.Background(), `{"location":"Atlantis"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown city: Atlantis")
	assert.Contains(t, res.Error, "北京")
}

func TestWeatherRejectsBadDate(t *testing.T) {
	_, handler := weatherTool()

	raw, err := handler(context.Background(), `{"location":"北京","date":"08/01/2026"}`)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")
}
