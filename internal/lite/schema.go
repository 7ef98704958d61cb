// Package lite writes and runs the subset of the TFLite flatbuffer format
// needed by a quantized dense classifier.
package lite

import "errors"

// FileIdentifier marks a TFLite flatbuffer.
const FileIdentifier = "TFL3"

// schemaVersion is the TFLite schema version written into Model.version.
const schemaVersion = 3

// Builtin operator codes.
const (
	opDequantize     int32 = 6
	opFullyConnected int32 = 9
	opSoftmax        int32 = 25
)

// Tensor element types.
const (
	typeFloat32 int8 = 0
	typeFloat16 int8 = 1
)

// Fused activations.
const (
	actNone int8 = 0
	actReLU int8 = 1
)

// BuiltinOptions union members.
const (
	optionsNone           byte = 0
	optionsFullyConnected byte = 8
	optionsSoftmax        byte = 9
)

// Table field slots.
const (
	modelVersion       = 0
	modelOperatorCodes = 1
	modelSubgraphs     = 2
	modelDescription   = 3
	modelBuffers       = 4
	modelFields        = 5

	subgraphTensors   = 0
	subgraphInputs    = 1
	subgraphOutputs   = 2
	subgraphOperators = 3
	subgraphName      = 4
	subgraphFields    = 5

	tensorShape        = 0
	tensorType         = 1
	tensorBuffer       = 2
	tensorName         = 3
	tensorQuantization = 4
	tensorFields       = 5

	quantMin    = 0
	quantMax    = 1
	quantFields = 2

	bufferData   = 0
	bufferFields = 1

	opcodeDeprecatedBuiltin = 0
	opcodeVersion           = 2
	opcodeBuiltin           = 3
	opcodeFields            = 4

	operatorOpcodeIndex    = 0
	operatorInputs         = 1
	operatorOutputs        = 2
	operatorOptionsType    = 3
	operatorBuiltinOptions = 4
	operatorFields         = 5

	fullyConnectedActivation = 0
	softmaxBeta              = 0
)

var (
	ErrNotTFLite   = errors.New("not a TFLite model")
	ErrUnsupported = errors.New("unsupported model")
)
