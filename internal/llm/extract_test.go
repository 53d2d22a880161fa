package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLoose(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		want       []string
		wantErr    bool
	}{
		{
			name:       "bare array",
			completion: `["one", "two"]`,
			want:       []string{"one", "two"},
		},
		{
			name:       "fenced block",
			completion: "Here you go:\n```json\n[\"one\", \"two\"]\n```\nHope that helps!",
			want:       []string{"one", "two"},
		},
		{
			name:       "fenced block without language tag",
			completion: "```\n[\"one\"]\n```",
			want:       []string{"one"},
		},
		{
			name:       "array embedded in prose",
			completion: `Sure! The queries are ["one", "two"] as requested.`,
			want:       []string{"one", "two"},
		},
		{
			name:       "plain prose",
			completion: "I could not produce any queries for that request.",
			wantErr:    true,
		},
		{
			name:       "empty completion",
			completion: "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := DecodeLoose(tt.completion, &got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoStructuredData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLooseObject(t *testing.T) {
	var scores map[string]float64

	err := DecodeLoose("Scores below.\n```json\n{\"0\": 2, \"1\": 9}\n```", &scores)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"0": 2, "1": 9}, scores)

	scores = nil
	err = DecodeLoose(`The mapping is {"0": 7} overall.`, &scores)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"0": 7}, scores)
}
