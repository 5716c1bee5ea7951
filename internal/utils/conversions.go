package utils

import "strings"

func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// ClaimStrings accepts the shapes a string-list claim arrives in: a JSON array,
// a single string, or a space separated string (OAuth2 scope style)
func ClaimStrings(v any) []string {
	switch value := v.(type) {
	case nil:
		return nil
	case []any:
		return ToStringSlice(value)
	case []string:
		return value
	case string:
		return strings.Fields(value)
	default:
		return nil
	}
}
