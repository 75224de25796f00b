package recommendation

import (
	"fmt"
	"strings"
)

func capped(v, hi float64) float64 {
	if v > hi {
		return hi
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	return capped(v, hi)
}

func mg(v float64) string {
	switch {
	case v >= 10:
		return fmt.Sprintf("%.0f", v)
	case v >= 1:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func ml(v float64) string {
	if v >= 10 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}

func is(v *string, want string) bool {
	return v != nil && *v == want
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
