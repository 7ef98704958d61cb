// Package mobile loads exported models into an on-device style runtime
// that runs one sample per invocation.
package mobile

// Interpreter runs a loaded model.
type Interpreter interface {
	// InputSize returns the number of input features.
	InputSize() int
	// OutputSize returns the number of output values.
	OutputSize() int
	// Invoke runs a single sample.
	Invoke(input []float32) ([]float32, error)
	Close() error
}
