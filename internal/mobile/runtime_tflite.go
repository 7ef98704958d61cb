//go:build tflite

package mobile

import (
	"errors"
	"fmt"

	"github.com/mattn/go-tflite"
)

// Runtime names the interpreter implementation compiled in.
const Runtime = "tflite"

type native struct {
	model   *tflite.Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter
}

// Load parses model with the TensorFlow Lite C runtime.
func Load(model []byte) (Interpreter, error) {
	m := tflite.NewModel(model)
	if m == nil {
		return nil, errors.New("tflite: cannot load model")
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)

	interp := tflite.NewInterpreter(m, options)
	if interp == nil {
		options.Delete()
		m.Delete()
		return nil, errors.New("tflite: cannot create interpreter")
	}

	n := &native{model: m, options: options, interp: interp}
	if status := interp.AllocateTensors(); status != tflite.OK {
		n.Close()
		return nil, fmt.Errorf("tflite: allocate tensors: status %d", status)
	}
	return n, nil
}

func (n *native) InputSize() int {
	return int(n.interp.GetInputTensor(0).ByteSize() / 4)
}

func (n *native) OutputSize() int {
	return int(n.interp.GetOutputTensor(0).ByteSize() / 4)
}

func (n *native) Invoke(input []float32) ([]float32, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), n.InputSize())
	}
	if status := n.interp.GetInputTensor(0).CopyFromBuffer(input); status != tflite.OK {
		return nil, fmt.Errorf("tflite: copy input: status %d", status)
	}
	if status := n.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tflite: invoke: status %d", status)
	}
	return append([]float32(nil), n.interp.GetOutputTensor(0).Float32s()...), nil
}

func (n *native) Close() error {
	n.interp.Delete()
	n.options.Delete()
	n.model.Delete()
	return nil
}
