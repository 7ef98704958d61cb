//go:build noplot

package chart

import (
	"errors"

	"github.com/ayusman/mudra/internal/nn"
)

// Available reports whether plotting is compiled in.
func Available() bool { return false }

// History is unavailable in binaries built with the noplot tag.
func History(string, nn.History) error {
	return errors.New("plotting not compiled in")
}
