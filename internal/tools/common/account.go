package common

import (
	"fmt"
	"net/mail"
	"strings"
)

// PersonFromArgs returns the normalized email of the person a tool acts
// for, read from the "email" argument.
func PersonFromArgs(args map[string]any) (string, error) {
	raw, _ := args["email"].(string)
	return NormalizeEmail(raw)
}

// NormalizeEmail trims and lowercases a bare address. Display names are
// rejected.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("invalid email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}

// StringsFromArgs reads a list argument given either as an array of strings
// or as one comma separated string. Blank entries are dropped.
func StringsFromArgs(args map[string]any, key string) []string {
	var parts []string
	switch v := args[key].(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
