package lite

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/x448/float16"

	"github.com/ayusman/mudra/internal/nn"
)

// Options control Convert.
type Options struct {
	// Float16 stores weights and biases as FLOAT16 constants followed by
	// DEQUANTIZE operators.
	Float16 bool
	// Representative rows are run through the float model to record the
	// value range of every activation tensor.
	Representative [][]float64
	// Description is stored in Model.description.
	Description string
}

// RandomDataset returns n uniform random rows in [0, 1).
func RandomDataset(n, features int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, features)
		for j := range rows[i] {
			rows[i][j] = rng.Float64()
		}
	}
	return rows
}

type tensorDef struct {
	name     string
	shape    []int32
	typ      int8
	buffer   uint32
	min, max float32
	hasRange bool
}

type operatorDef struct {
	opcode      int32
	inputs      []int32
	outputs     []int32
	optionsType byte
	activation  int8
	beta        float32
}

type graph struct {
	tensors   []tensorDef
	operators []operatorDef
	buffers   [][]byte
	inputs    []int32
	outputs   []int32
}

func (g *graph) addBuffer(data []byte) uint32 {
	g.buffers = append(g.buffers, data)
	return uint32(len(g.buffers) - 1)
}

func (g *graph) addTensor(t tensorDef) int32 {
	g.tensors = append(g.tensors, t)
	return int32(len(g.tensors) - 1)
}

// Convert serializes model as a TFLite flatbuffer. Dropout layers are
// dropped, ReLU is fused into FULLY_CONNECTED and a softmax output layer
// becomes a separate SOFTMAX operator.
func Convert(model *nn.Network, opts Options) ([]byte, error) {
	layers := model.DenseLayers()
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no dense layers", ErrUnsupported)
	}

	ranges, err := calibrate(layers, opts.Representative)
	if err != nil {
		return nil, err
	}

	// Buffer 0 is the empty sentinel shared by all non-constant tensors.
	g := &graph{buffers: [][]byte{nil}}

	prev := g.addTensor(tensorDef{
		name:  "serving_default_input:0",
		shape: []int32{1, int32(model.Inputs())},
		typ:   typeFloat32,
	})
	g.inputs = []int32{prev}

	for i, d := range layers {
		prefix := fmt.Sprintf("sequential/dense_%d", i)
		in, out := d.In(), d.Out()

		w := make([]float32, 0, in*out)
		for o := 0; o < out; o++ {
			for k := 0; k < in; k++ {
				w = append(w, float32(d.Weights().At(k, o)))
			}
		}
		b := make([]float32, out)
		for o, v := range d.Bias() {
			b[o] = float32(v)
		}

		wShape := []int32{int32(out), int32(in)}
		bShape := []int32{int32(out)}

		var wIdx, bIdx int32
		if opts.Float16 {
			w16 := g.addTensor(tensorDef{name: prefix + "/MatMul;float16", shape: wShape, typ: typeFloat16, buffer: g.addBuffer(float16Bytes(w))})
			b16 := g.addTensor(tensorDef{name: prefix + "/BiasAdd;float16", shape: bShape, typ: typeFloat16, buffer: g.addBuffer(float16Bytes(b))})
			wIdx = g.addTensor(tensorDef{name: prefix + "/MatMul", shape: wShape, typ: typeFloat32})
			bIdx = g.addTensor(tensorDef{name: prefix + "/BiasAdd/ReadVariableOp", shape: bShape, typ: typeFloat32})
			g.operators = append(g.operators,
				operatorDef{opcode: opDequantize, inputs: []int32{w16}, outputs: []int32{wIdx}},
				operatorDef{opcode: opDequantize, inputs: []int32{b16}, outputs: []int32{bIdx}},
			)
		} else {
			wIdx = g.addTensor(tensorDef{name: prefix + "/MatMul", shape: wShape, typ: typeFloat32, buffer: g.addBuffer(float32Bytes(w))})
			bIdx = g.addTensor(tensorDef{name: prefix + "/BiasAdd/ReadVariableOp", shape: bShape, typ: typeFloat32, buffer: g.addBuffer(float32Bytes(b))})
		}

		act := actNone
		suffix := "/BiasAdd"
		if d.Activation() == nn.ReLU {
			act = actReLU
			suffix = "/Relu"
		}
		r := ranges[i]
		next := g.addTensor(tensorDef{
			name:     prefix + suffix,
			shape:    []int32{1, int32(out)},
			typ:      typeFloat32,
			min:      r.min,
			max:      r.max,
			hasRange: r.ok,
		})
		g.operators = append(g.operators, operatorDef{
			opcode:      opFullyConnected,
			inputs:      []int32{prev, wIdx, bIdx},
			outputs:     []int32{next},
			optionsType: optionsFullyConnected,
			activation:  act,
		})
		prev = next

		if d.Activation() == nn.Softmax {
			r := ranges[len(layers)]
			next = g.addTensor(tensorDef{
				name:     "StatefulPartitionedCall:0",
				shape:    []int32{1, int32(out)},
				typ:      typeFloat32,
				min:      r.min,
				max:      r.max,
				hasRange: r.ok,
			})
			g.operators = append(g.operators, operatorDef{
				opcode:      opSoftmax,
				inputs:      []int32{prev},
				outputs:     []int32{next},
				optionsType: optionsSoftmax,
				beta:        1,
			})
			prev = next
		}
	}
	g.outputs = []int32{prev}

	desc := opts.Description
	if desc == "" {
		desc = "mudra gesture classifier"
	}
	return g.serialize(desc), nil
}

type valueRange struct {
	min, max float32
	ok       bool
}

func (r *valueRange) observe(v float64) {
	f := float32(v)
	if !r.ok {
		r.min, r.max, r.ok = f, f, true
		return
	}
	r.min = min(r.min, f)
	r.max = max(r.max, f)
}

// calibrate runs rows through the float layers, tracking the range of
// every layer output plus the final softmax.
func calibrate(layers []*nn.Dense, rows [][]float64) ([]valueRange, error) {
	ranges := make([]valueRange, len(layers)+1)
	for n, row := range rows {
		if len(row) != layers[0].In() {
			return nil, fmt.Errorf("representative row %d has %d features, want %d", n, len(row), layers[0].In())
		}
		x := row
		for i, d := range layers {
			y := make([]float64, d.Out())
			for o := range y {
				s := d.Bias()[o]
				for k, v := range x {
					s += v * d.Weights().At(k, o)
				}
				if d.Activation() == nn.ReLU && s < 0 {
					s = 0
				}
				y[o] = s
				ranges[i].observe(s)
			}
			if d.Activation() == nn.Softmax {
				for _, p := range softmax64(y) {
					ranges[len(layers)].observe(p)
				}
			}
			x = y
		}
	}
	return ranges, nil
}

func softmax64(x []float64) []float64 {
	m := math.Inf(-1)
	for _, v := range x {
		m = math.Max(m, v)
	}
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func float16Bytes(v []float32) []byte {
	out := make([]byte, 2*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(f).Bits())
	}
	return out
}

func float32Bytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// serialize writes the graph bottom-up: leaves first, root table last.
func (g *graph) serialize(description string) []byte {
	b := flatbuffers.NewBuilder(1024)

	buffers := make([]flatbuffers.UOffsetT, len(g.buffers))
	for i, data := range g.buffers {
		var vec flatbuffers.UOffsetT
		if len(data) > 0 {
			vec = alignedBytes(b, data)
		}
		b.StartObject(bufferFields)
		if vec != 0 {
			b.PrependUOffsetTSlot(bufferData, vec, 0)
		}
		buffers[i] = b.EndObject()
	}

	tensors := make([]flatbuffers.UOffsetT, len(g.tensors))
	for i, t := range g.tensors {
		name := b.CreateString(t.name)
		shape := int32Vector(b, t.shape)

		var quant flatbuffers.UOffsetT
		if t.hasRange {
			minVec := float32Vector(b, []float32{t.min})
			maxVec := float32Vector(b, []float32{t.max})
			b.StartObject(quantFields)
			b.PrependUOffsetTSlot(quantMin, minVec, 0)
			b.PrependUOffsetTSlot(quantMax, maxVec, 0)
			quant = b.EndObject()
		}

		b.StartObject(tensorFields)
		b.PrependUOffsetTSlot(tensorShape, shape, 0)
		b.PrependInt8Slot(tensorType, t.typ, 0)
		b.PrependUint32Slot(tensorBuffer, t.buffer, 0)
		b.PrependUOffsetTSlot(tensorName, name, 0)
		if quant != 0 {
			b.PrependUOffsetTSlot(tensorQuantization, quant, 0)
		}
		tensors[i] = b.EndObject()
	}

	codes, codeIndex := g.operatorCodes()

	operators := make([]flatbuffers.UOffsetT, len(g.operators))
	for i, op := range g.operators {
		inputs := int32Vector(b, op.inputs)
		outputs := int32Vector(b, op.outputs)

		var options flatbuffers.UOffsetT
		switch op.optionsType {
		case optionsFullyConnected:
			b.StartObject(1)
			b.PrependInt8Slot(fullyConnectedActivation, op.activation, 0)
			options = b.EndObject()
		case optionsSoftmax:
			b.StartObject(1)
			b.PrependFloat32Slot(softmaxBeta, op.beta, 0)
			options = b.EndObject()
		}

		b.StartObject(operatorFields)
		b.PrependUint32Slot(operatorOpcodeIndex, codeIndex[op.opcode], 0)
		b.PrependUOffsetTSlot(operatorInputs, inputs, 0)
		b.PrependUOffsetTSlot(operatorOutputs, outputs, 0)
		if options != 0 {
			b.PrependByteSlot(operatorOptionsType, op.optionsType, optionsNone)
			b.PrependUOffsetTSlot(operatorBuiltinOptions, options, 0)
		}
		operators[i] = b.EndObject()
	}

	graphName := b.CreateString("main")
	tensorVec := offsetVector(b, tensors)
	inputVec := int32Vector(b, g.inputs)
	outputVec := int32Vector(b, g.outputs)
	operatorVec := offsetVector(b, operators)

	b.StartObject(subgraphFields)
	b.PrependUOffsetTSlot(subgraphTensors, tensorVec, 0)
	b.PrependUOffsetTSlot(subgraphInputs, inputVec, 0)
	b.PrependUOffsetTSlot(subgraphOutputs, outputVec, 0)
	b.PrependUOffsetTSlot(subgraphOperators, operatorVec, 0)
	b.PrependUOffsetTSlot(subgraphName, graphName, 0)
	subgraph := b.EndObject()

	opcodes := make([]flatbuffers.UOffsetT, len(codes))
	for i, code := range codes {
		b.StartObject(opcodeFields)
		if code < 127 {
			b.PrependInt8Slot(opcodeDeprecatedBuiltin, int8(code), 0)
		}
		b.PrependInt32Slot(opcodeVersion, opVersion(code), 1)
		b.PrependInt32Slot(opcodeBuiltin, code, 0)
		opcodes[i] = b.EndObject()
	}

	opcodeVec := offsetVector(b, opcodes)
	subgraphVec := offsetVector(b, []flatbuffers.UOffsetT{subgraph})
	desc := b.CreateString(description)
	bufferVec := offsetVector(b, buffers)

	b.StartObject(modelFields)
	b.PrependUint32Slot(modelVersion, schemaVersion, 0)
	b.PrependUOffsetTSlot(modelOperatorCodes, opcodeVec, 0)
	b.PrependUOffsetTSlot(modelSubgraphs, subgraphVec, 0)
	b.PrependUOffsetTSlot(modelDescription, desc, 0)
	b.PrependUOffsetTSlot(modelBuffers, bufferVec, 0)
	root := b.EndObject()

	b.FinishWithFileIdentifier(root, []byte(FileIdentifier))
	return b.FinishedBytes()
}

// operatorCodes lists the distinct builtin codes in first-use order.
func (g *graph) operatorCodes() ([]int32, map[int32]uint32) {
	var codes []int32
	index := make(map[int32]uint32)
	for _, op := range g.operators {
		if _, ok := index[op.opcode]; ok {
			continue
		}
		index[op.opcode] = uint32(len(codes))
		codes = append(codes, op.opcode)
	}
	return codes, index
}

func opVersion(code int32) int32 {
	if code == opDequantize {
		// Version 3 is the first to accept FLOAT16 inputs.
		return 3
	}
	return 1
}

func alignedBytes(b *flatbuffers.Builder, data []byte) flatbuffers.UOffsetT {
	b.StartVector(1, len(data), 16)
	for i := len(data) - 1; i >= 0; i-- {
		b.PrependByte(data[i])
	}
	return b.EndVector(len(data))
}

func int32Vector(b *flatbuffers.Builder, v []int32) flatbuffers.UOffsetT {
	b.StartVector(4, len(v), 4)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependInt32(v[i])
	}
	return b.EndVector(len(v))
}

func float32Vector(b *flatbuffers.Builder, v []float32) flatbuffers.UOffsetT {
	b.StartVector(4, len(v), 4)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependFloat32(v[i])
	}
	return b.EndVector(len(v))
}

func offsetVector(b *flatbuffers.Builder, v []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	b.StartVector(4, len(v), 4)
	for i := len(v) - 1; i >= 0; i-- {
		b.PrependUOffsetT(v[i])
	}
	return b.EndVector(len(v))
}
