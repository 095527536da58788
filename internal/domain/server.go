package domain

import "strconv"

// ServerStatus is one server's live status as returned by /v2/server.
// The upstream shape is not fixed, so the object is kept as-is and
// the status page reads the keys it knows about.
type ServerStatus map[string]any

// Name returns the server's display name
func (s ServerStatus) Name() string {
	for _, key := range []string{"server_name", "name"} {
		if v, ok := s[key].(string); ok && v != "" {
			return v
		}
	}
	return "unknown"
}

// String returns a string-valued field, formatting numbers as needed
func (s ServerStatus) String(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns a numeric field, or 0 when it is missing or not a number
func (s ServerStatus) Int(key string) int {
	switch v := s[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Online reports whether the upstream considers the server reachable.
// Servers without an explicit flag are assumed online.
func (s ServerStatus) Online() bool {
	if errStr, ok := s["error"].(string); ok && errStr != "" {
		return false
	}
	if online, ok := s["online"].(bool); ok {
		return online
	}
	return true
}
