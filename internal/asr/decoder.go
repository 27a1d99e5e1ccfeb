package asr

import (
	"context"
	"fmt"
	"math"

	"github.com/example/streamcap/internal/onnx"
)

// decoderDriver owns the RNN-T greedy decode loop over one encoder pump's
// output frames.
type decoderDriver struct {
	runner  onnx.GraphRunner
	profile Profile
}

// decodeResult is the outcome of decoding every encoder frame in one
// pump: the emitted token ids plus the predictor state/last-token to
// carry into the next pump.
type decodeResult struct {
	Tokens    []int
	State     PredictorState
	LastToken int
}

// decode runs the bounded greedy search described in the RNN-T decoding
// algorithm: for each of the frameLen encoder time steps, repeatedly
// invoke the joint network until it emits blank or the per-step symbol
// cap is hit, carrying the predictor state and last token across both the
// inner loop and across encoder frames. encoded is [H, width] row-major;
// width is the encoder output tensor's own time dimension and may exceed
// frameLen when the graph pads its output, so it is used as the row
// stride while frameLen bounds how many of those columns are real.
func (d *decoderDriver) decode(
	ctx context.Context,
	encoded []float32,
	width int,
	frameLen int,
	state PredictorState,
	lastToken int,
) (decodeResult, error) {
	hidden := d.profile.HiddenDim
	tokens := make([]int, 0, frameLen)

	for t := 0; t < frameLen; t++ {
		frame := make([]float32, hidden)
		for h := 0; h < hidden; h++ {
			frame[h] = encoded[h*width+t]
		}

		for step := 0; step < MaxSymbolsPerStep; step++ {
			select {
			case <-ctx.Done():
				return decodeResult{}, fmt.Errorf("%w: %v", ErrModel, ctx.Err())
			default:
			}

			logits, nextState, err := d.joint(ctx, frame, lastToken, state)
			if err != nil {
				return decodeResult{}, err
			}

			best := argmax(logits)
			if best == d.profile.BlankID {
				break
			}

			tokens = append(tokens, best)
			lastToken = best
			state = nextState
		}
	}

	return decodeResult{Tokens: tokens, State: state, LastToken: lastToken}, nil
}

func (d *decoderDriver) joint(
	ctx context.Context,
	frame []float32,
	targetToken int,
	state PredictorState,
) ([]float32, PredictorState, error) {
	frameTensor, err := onnx.NewTensor(frame, []int64{1, int64(d.profile.HiddenDim), 1})
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: build encoder_outputs tensor: %v", ErrModel, err)
	}

	targetsTensor, err := onnx.NewTensor([]int64{int64(targetToken)}, []int64{1, 1})
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: build targets tensor: %v", ErrModel, err)
	}

	targetLenTensor, err := onnx.NewTensor([]int64{1}, []int64{1})
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: build target_length tensor: %v", ErrModel, err)
	}

	state1Tensor, err := onnx.NewTensor(state.State1, []int64{int64(d.profile.PredictorLayers), 1, int64(d.profile.PredictorDim)})
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: build input_states_1 tensor: %v", ErrModel, err)
	}

	state2Tensor, err := onnx.NewTensor(state.State2, []int64{int64(d.profile.PredictorLayers), 1, int64(d.profile.PredictorDim)})
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: build input_states_2 tensor: %v", ErrModel, err)
	}

	outputs, err := d.runner.Run(ctx, map[string]*onnx.Tensor{
		"encoder_outputs": frameTensor,
		"targets":         targetsTensor,
		"target_length":   targetLenTensor,
		"input_states_1":  state1Tensor,
		"input_states_2":  state2Tensor,
	})
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: run decoder_joint: %v", ErrModel, err)
	}

	logits, err := onnx.ExtractFloat32(outputs["outputs"])
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: extract logits: %v", ErrModel, err)
	}

	state1, err := onnx.ExtractFloat32(outputs["output_states_1"])
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: extract output_states_1: %v", ErrModel, err)
	}

	state2, err := onnx.ExtractFloat32(outputs["output_states_2"])
	if err != nil {
		return nil, PredictorState{}, fmt.Errorf("%w: extract output_states_2: %v", ErrModel, err)
	}

	return logits, PredictorState{State1: state1, State2: state2}, nil
}

// argmax returns the index of the largest value, with the first index
// winning any tie.
func argmax(logits []float32) int {
	best := 0
	bestVal := float32(math.Inf(-1))

	for i, v := range logits {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}

	return best
}
