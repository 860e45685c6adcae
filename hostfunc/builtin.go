package hostfunc

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var errDivideByZero = errors.New("division by zero")

func add(a, b int64) int64 { return a + b }
func sub(a, b int64) int64 { return a - b }

func mul(a, b float64) float64 { return a * b }

func div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errDivideByZero
	}
	return a / b, nil
}

func concat(a, b string) string { return a + b }

func length(s string) int { return utf8.RuneCountInString(s) }

func not(b bool) bool { return !b }

func timeNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// RegisterBuiltins adds the arithmetic, text and clock functions to r.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		name string
		fn   any
	}{
		{"add", add},
		{"sub", sub},
		{"mul", mul},
		{"div", div},
		{"concat", concat},
		{"upper", strings.ToUpper},
		{"length", length},
		{"not", not},
		{"time_now", timeNow},
	}
	for _, b := range builtins {
		if err := r.Register(b.name, b.fn); err != nil {
			return err
		}
	}
	return nil
}
