//go:build !tflite

package mobile

import (
	"github.com/ayusman/mudra/internal/lite"
)

// Runtime names the interpreter implementation compiled in.
const Runtime = "lite"

// Load parses model with the built-in pure Go interpreter.
func Load(model []byte) (Interpreter, error) {
	interp, err := lite.NewInterpreter(model)
	if err != nil {
		return nil, err
	}
	return interp, nil
}
