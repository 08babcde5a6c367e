// Package native is a fixture for the generator tests.
package native

import (
	"errors"
	"strings"

	"github.com/wippyai/hostffi/value"
)

// Celsius is a temperature.
type Celsius float64

func DivideTen(x float64) float64 {
	if x == 0 {
		panic("division by zero")
	}
	return 10 / x
}

//hostffi:export shout_it
func Shout(s string) (string, error) {
	if s == "" {
		return "", errors.New("nothing to shout")
	}
	return strings.ToUpper(s), nil
}

func Warm(c Celsius) Celsius { return c + 1 }

func Count(v value.Value) int {
	if arr, ok := v.(value.Array); ok {
		return len(arr)
	}
	return 0
}

func Stream(ch chan int) {}
