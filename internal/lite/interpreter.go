package lite

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

type tensor struct {
	name  string
	shape []int
	typ   int8
	data  []float32
	size  int
	min   float32
	max   float32
}

type operator struct {
	code       int32
	inputs     []int
	outputs    []int
	activation int8
	beta       float32
}

// Interpreter runs a TFLite model made of DEQUANTIZE, FULLY_CONNECTED and
// SOFTMAX operators on FLOAT32 and FLOAT16 tensors, one sample per call.
type Interpreter struct {
	tensors   []*tensor
	operators []operator
	input     int
	output    int
}

// NewInterpreter parses model and allocates its tensors.
func NewInterpreter(model []byte) (interp *Interpreter, err error) {
	if len(model) < 8 || string(model[4:8]) != FileIdentifier {
		return nil, ErrNotTFLite
	}
	// Malformed offsets surface as index panics from the flatbuffer reader.
	defer func() {
		if r := recover(); r != nil {
			interp, err = nil, fmt.Errorf("%w: %v", ErrNotTFLite, r)
		}
	}()

	root := rootTable(model)
	if n := root.vecLen(modelSubgraphs); n != 1 {
		return nil, fmt.Errorf("%w: %d subgraphs", ErrUnsupported, n)
	}

	var codes []int32
	for i := 0; i < root.vecLen(modelOperatorCodes); i++ {
		oc := root.at(modelOperatorCodes, i)
		code := max(oc.i32(opcodeBuiltin, 0), int32(oc.i8(opcodeDeprecatedBuiltin, 0)))
		codes = append(codes, code)
	}

	buffers := make([][]byte, root.vecLen(modelBuffers))
	for i := range buffers {
		buffers[i] = root.at(modelBuffers, i).bytes(bufferData)
	}

	sg := root.at(modelSubgraphs, 0)
	interp = &Interpreter{}

	for i := 0; i < sg.vecLen(subgraphTensors); i++ {
		t, err := readTensor(sg.at(subgraphTensors, i), buffers)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		interp.tensors = append(interp.tensors, t)
	}

	for i := 0; i < sg.vecLen(subgraphOperators); i++ {
		op, err := interp.readOperator(sg.at(subgraphOperators, i), codes)
		if err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
		interp.operators = append(interp.operators, op)
	}

	inputs, outputs := sg.int32s(subgraphInputs), sg.int32s(subgraphOutputs)
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("%w: %d inputs, %d outputs", ErrUnsupported, len(inputs), len(outputs))
	}
	interp.input, interp.output = int(inputs[0]), int(outputs[0])
	if err := interp.checkIndex(interp.input); err != nil {
		return nil, err
	}
	if err := interp.checkIndex(interp.output); err != nil {
		return nil, err
	}

	return interp, nil
}

func readTensor(t table, buffers [][]byte) (*tensor, error) {
	tn := &tensor{
		name: t.str(tensorName),
		typ:  t.i8(tensorType, typeFloat32),
		size: 1,
	}
	for _, d := range t.int32s(tensorShape) {
		tn.shape = append(tn.shape, int(d))
		tn.size *= int(d)
	}
	if q, ok := t.child(tensorQuantization); ok {
		if v := q.float32s(quantMin); len(v) == 1 {
			tn.min = v[0]
		}
		if v := q.float32s(quantMax); len(v) == 1 {
			tn.max = v[0]
		}
	}

	buf := t.u32(tensorBuffer, 0)
	if int(buf) >= len(buffers) {
		return nil, fmt.Errorf("buffer %d out of range", buf)
	}
	raw := buffers[buf]

	switch tn.typ {
	case typeFloat32:
		if len(raw) == 0 {
			tn.data = make([]float32, tn.size)
			break
		}
		if len(raw) != 4*tn.size {
			return nil, fmt.Errorf("%s: %d bytes for %d float32 values", tn.name, len(raw), tn.size)
		}
		tn.data = make([]float32, tn.size)
		for i := range tn.data {
			tn.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	case typeFloat16:
		if len(raw) != 2*tn.size {
			return nil, fmt.Errorf("%s: %d bytes for %d float16 values", tn.name, len(raw), tn.size)
		}
		tn.data = make([]float32, tn.size)
		for i := range tn.data {
			tn.data[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
		}
	default:
		return nil, fmt.Errorf("%w: tensor type %d", ErrUnsupported, tn.typ)
	}

	return tn, nil
}

func (it *Interpreter) readOperator(t table, codes []int32) (operator, error) {
	idx := int(t.u32(operatorOpcodeIndex, 0))
	if idx >= len(codes) {
		return operator{}, fmt.Errorf("opcode index %d out of range", idx)
	}

	op := operator{code: codes[idx], beta: 1}
	for _, i := range t.int32s(operatorInputs) {
		op.inputs = append(op.inputs, int(i))
	}
	for _, i := range t.int32s(operatorOutputs) {
		op.outputs = append(op.outputs, int(i))
	}
	for _, i := range append(append([]int(nil), op.inputs...), op.outputs...) {
		if err := it.checkIndex(i); err != nil {
			return operator{}, err
		}
	}
	if len(op.outputs) != 1 {
		return operator{}, fmt.Errorf("%w: %d outputs", ErrUnsupported, len(op.outputs))
	}

	options, hasOptions := t.child(operatorBuiltinOptions)
	optionsType := t.u8(operatorOptionsType, optionsNone)

	switch op.code {
	case opDequantize:
		if len(op.inputs) != 1 {
			return operator{}, fmt.Errorf("dequantize: %d inputs", len(op.inputs))
		}
	case opFullyConnected:
		if len(op.inputs) != 3 {
			return operator{}, fmt.Errorf("fully connected: %d inputs", len(op.inputs))
		}
		if hasOptions && optionsType == optionsFullyConnected {
			op.activation = options.i8(fullyConnectedActivation, actNone)
		}
		if op.activation != actNone && op.activation != actReLU {
			return operator{}, fmt.Errorf("%w: fused activation %d", ErrUnsupported, op.activation)
		}
		w, out := it.tensors[op.inputs[1]], it.tensors[op.outputs[0]]
		if len(w.shape) != 2 || w.shape[1] != it.tensors[op.inputs[0]].size || w.shape[0] != out.size {
			return operator{}, fmt.Errorf("fully connected: weight shape %v", w.shape)
		}
	case opSoftmax:
		if len(op.inputs) != 1 {
			return operator{}, fmt.Errorf("softmax: %d inputs", len(op.inputs))
		}
		if hasOptions && optionsType == optionsSoftmax {
			op.beta = options.f32(softmaxBeta, 1)
		}
	default:
		return operator{}, fmt.Errorf("%w: builtin operator %d", ErrUnsupported, op.code)
	}

	return op, nil
}

func (it *Interpreter) checkIndex(i int) error {
	if i < 0 || i >= len(it.tensors) {
		return fmt.Errorf("tensor index %d out of range", i)
	}
	return nil
}

// InputSize returns the number of input features.
func (it *Interpreter) InputSize() int {
	return it.tensors[it.input].size
}

// OutputSize returns the number of output values.
func (it *Interpreter) OutputSize() int {
	return it.tensors[it.output].size
}

// Invoke runs one sample through the graph and returns a copy of the
// output tensor.
func (it *Interpreter) Invoke(input []float32) ([]float32, error) {
	in := it.tensors[it.input]
	if len(input) != in.size {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), in.size)
	}
	copy(in.data, input)

	for _, op := range it.operators {
		out := it.tensors[op.outputs[0]]
		switch op.code {
		case opDequantize:
			copy(out.data, it.tensors[op.inputs[0]].data)
		case opFullyConnected:
			fullyConnected(it.tensors[op.inputs[0]], it.tensors[op.inputs[1]], it.tensors[op.inputs[2]], out, op.activation)
		case opSoftmax:
			softmax(it.tensors[op.inputs[0]].data, out.data, op.beta)
		}
	}

	return append([]float32(nil), it.tensors[it.output].data...), nil
}

// Close releases the interpreter. It exists for parity with native
// runtimes and never fails.
func (it *Interpreter) Close() error {
	it.tensors = nil
	it.operators = nil
	return nil
}

func fullyConnected(in, w, b, out *tensor, activation int8) {
	n := in.size
	for o := range out.data {
		s := b.data[o]
		row := w.data[o*n : (o+1)*n]
		for k, v := range in.data {
			s += v * row[k]
		}
		if activation == actReLU && s < 0 {
			s = 0
		}
		out.data[o] = s
	}
}

func softmax(in, out []float32, beta float32) {
	m := float32(math.Inf(-1))
	for _, v := range in {
		m = max(m, v)
	}
	var sum float64
	for i, v := range in {
		e := math.Exp(float64(beta * (v - m)))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
}

// Range returns the calibrated value range recorded for the named tensor.
func (it *Interpreter) Range(name string) (lo, hi float32, ok bool) {
	for _, t := range it.tensors {
		if t.name == name {
			return t.min, t.max, t.min != 0 || t.max != 0
		}
	}
	return 0, 0, false
}

// Operators returns the builtin code of every operator in execution order.
func (it *Interpreter) Operators() []int32 {
	out := make([]int32, len(it.operators))
	for i, op := range it.operators {
		out[i] = op.code
	}
	return out
}
