package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-02-29", want: "2024-02-29"},
		{in: "2024-02-29T22:30:00Z", want: "2024-02-29"},
		{in: "2024-02-29T23:30:00-02:00", want: "2024-03-01"}, // UTC day
		{in: "29/02/2024", wantErr: true},
		{in: "2023-02-29", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Start  Date `json:"start"`
		Expiry Date `json:"expiry"`
	}

	data, err := json.Marshal(payload{Start: NewDate(time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start": "2024-01-31", "expiry": null}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"start": "2024-01-31", "expiry": ""}`), &p))
	assert.Equal(t, "2024-01-31", p.Start.String())
	assert.True(t, p.Expiry.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"start": "lol"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"start": 12}`), &p))
}

func TestDate_AddMonths(t *testing.T) {
	d, err := ParseDate("2024-01-31")
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", d.AddMonths(1).String())
	assert.Equal(t, "2024-03-31", d.AddMonths(2).String())
	assert.Equal(t, "2024-02-10", d.AddDays(10).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.True(t, d.Equal(NewDate(d.Time.Add(5*time.Hour))))
}
