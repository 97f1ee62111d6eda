package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nubip/schedsync/internal/instrumentation"
)

// Result is the outcome for one item.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary counts the results of a batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseList reads a parameter given as one string, a comma separated
// string or an array of strings. Entries are trimmed and duplicates
// dropped, keeping the first occurrence.
func ParseList(param any, paramName string) ([]string, error) {
	var raw []string
	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", paramName)
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	return out, nil
}

// Run calls fn for every id in order.
func Run(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (string, error)) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		res, err := fn(ctx, id)
		if err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		results = append(results, NewSuccessResult(id, res))
	}
	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == instrumentation.StatusSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// JSON renders the summary as indented JSON.
func (s Summary) JSON() string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

func NewSuccessResult(id, message string) Result {
	return Result{ID: id, Status: instrumentation.StatusSuccess, Result: message}
}

func NewErrorResult(id string, err error) Result {
	return Result{ID: id, Status: instrumentation.StatusError, Error: err.Error()}
}
