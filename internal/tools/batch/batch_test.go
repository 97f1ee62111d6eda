package batch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr string
	}{
		{name: "single string", input: "a@nubip.edu.ua", want: []string{"a@nubip.edu.ua"}},
		{name: "comma separated", input: "a@nubip.edu.ua, b@nubip.edu.ua", want: []string{"a@nubip.edu.ua", "b@nubip.edu.ua"}},
		{name: "array", input: []any{"x", " y "}, want: []string{"x", "y"}},
		{name: "string slice", input: []string{"x", "x", "z"}, want: []string{"x", "z"}},
		{name: "nil", input: nil, wantErr: "emails is required"},
		{name: "blank", input: " , ", wantErr: "emails cannot be empty"},
		{name: "empty array", input: []any{}, wantErr: "emails cannot be empty"},
		{name: "non-string element", input: []any{"x", 3}, wantErr: "emails[1] must be a string"},
		{name: "wrong type", input: 42, wantErr: "emails must be a string or array of strings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList(tt.input, "emails")
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun(t *testing.T) {
	boom := errors.New("no credentials")
	results := Run(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, id string) (string, error) {
		if id == "b" {
			return "", boom
		}
		return "synced " + id, nil
	})

	require.Len(t, results, 3)
	assert.Equal(t, NewSuccessResult("a", "synced a"), results[0])
	assert.Equal(t, NewErrorResult("b", boom), results[1])
	assert.Equal(t, "success", results[2].Status)
}

func TestRun_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var called []string
	results := Run(ctx, []string{"a", "b", "c"}, func(_ context.Context, id string) (string, error) {
		called = append(called, id)
		cancel()
		return "ok", nil
	})

	assert.Equal(t, []string{"a"}, called)
	require.Len(t, results, 3)
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, "error", results[1].Status)
	assert.Equal(t, context.Canceled.Error(), results[2].Error)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		NewSuccessResult("a", "ok"),
		NewErrorResult("b", errors.New("failed")),
		NewSuccessResult("c", "ok"),
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Successful)
	assert.Equal(t, 1, s.Failed)

	var decoded Summary
	require.NoError(t, json.Unmarshal([]byte(s.JSON()), &decoded))
	assert.Equal(t, s, decoded)
}
