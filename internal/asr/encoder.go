package asr

import (
	"context"
	"fmt"

	"github.com/example/streamcap/internal/onnx"
)

// encoderDriver owns the cache-aware streaming encoder invocation: it
// assembles a fixed-shape mel tensor from the growing feature buffer,
// calls the encoder graph, and replaces the cache only on full success.
type encoderDriver struct {
	runner  onnx.GraphRunner
	profile Profile
}

// encoderResult is what one successful pump produces.
type encoderResult struct {
	// Encoded is [H, T'] row-major (hidden_dim major, time minor),
	// matching the [1, H, T'] graph output with the batch dim dropped.
	Encoded []float32
	// EncodedWidth is the real T' from the "encoded" tensor's own [1, H, T']
	// shape — the row stride for indexing Encoded. FrameLen (from
	// encoded_len) is only how many of those T' columns hold valid,
	// unpadded frames; it must never be used as the stride, since the
	// graph is free to return more columns than encoded_len reports.
	EncodedWidth int
	FrameLen     int
	NextCache    EncoderCache
}

// pump assembles the chunk starting at mel frame main_start (the number
// of mel frames already consumed) from melFrames — which holds the
// complete mel matrix computed over the full audio buffer so far, laid
// out as melFrames[frame][mel] — and invokes the encoder graph.
//
// isFirstChunk selects the zero-padded-cache layout for chunk index 0;
// every later chunk uses the cache_start/cache_offset layout. expectedSize
// sizes the mel tensor (always PreEncodeCache+chunkSize, padded with zeros
// past the real content on a short chunk). lengthArg is the separate value
// passed to the graph's length input: the streaming path always passes
// expectedSize itself, even on a short first chunk, while the offline path
// passes PreEncodeCache+main_len (the real content length) — both
// conventions are properties of how the encoder graph was exported and are
// kept verbatim rather than unified.
func (d *encoderDriver) pump(
	ctx context.Context,
	melFrames [][]float32,
	mainStart, chunkSize, expectedSize, lengthArg int,
	isFirstChunk bool,
	cache EncoderCache,
) (encoderResult, error) {
	nMels := NMels
	if len(melFrames) > 0 {
		nMels = len(melFrames[0])
	}

	chunkData := make([]float32, nMels*expectedSize)

	if isFirstChunk {
		fill := chunkSize
		if fill > len(melFrames) {
			fill = len(melFrames)
		}

		for f := 0; f < fill; f++ {
			for m := 0; m < nMels; m++ {
				chunkData[m*expectedSize+d.profile.PreEncodeCache+f] = melFrames[f][m]
			}
		}
	} else {
		cacheStart := mainStart - d.profile.PreEncodeCache
		if cacheStart < 0 {
			cacheStart = 0
		}

		cacheFrames := mainStart - cacheStart
		cacheOffset := d.profile.PreEncodeCache - cacheFrames

		for f := 0; f < cacheFrames; f++ {
			for m := 0; m < nMels; m++ {
				chunkData[m*expectedSize+cacheOffset+f] = melFrames[cacheStart+f][m]
			}
		}

		mainFill := chunkSize
		if remaining := len(melFrames) - mainStart; remaining < mainFill {
			mainFill = remaining
		}

		for f := 0; f < mainFill; f++ {
			for m := 0; m < nMels; m++ {
				chunkData[m*expectedSize+d.profile.PreEncodeCache+f] = melFrames[mainStart+f][m]
			}
		}
	}

	melTensor, err := onnx.NewTensor(chunkData, []int64{1, int64(nMels), int64(expectedSize)})
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: build mel tensor: %v", ErrModel, err)
	}

	lengthTensor, err := onnx.NewTensor([]int64{int64(lengthArg)}, []int64{1})
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: build length tensor: %v", ErrModel, err)
	}

	channelTensor, err := onnx.NewTensor(cache.LastChannel, []int64{
		int64(d.profile.NumLayers), 1, int64(d.profile.LeftContext), int64(d.profile.HiddenDim),
	})
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: build cache_last_channel tensor: %v", ErrModel, err)
	}

	timeTensor, err := onnx.NewTensor(cache.LastTime, []int64{
		int64(d.profile.NumLayers), 1, int64(d.profile.HiddenDim), int64(d.profile.ConvContext),
	})
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: build cache_last_time tensor: %v", ErrModel, err)
	}

	channelLenTensor, err := onnx.NewTensor(cache.LastChannelLen, []int64{1})
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: build cache_last_channel_len tensor: %v", ErrModel, err)
	}

	select {
	case <-ctx.Done():
		return encoderResult{}, fmt.Errorf("%w: %v", ErrModel, ctx.Err())
	default:
	}

	outputs, err := d.runner.Run(ctx, map[string]*onnx.Tensor{
		"processed_signal":        melTensor,
		"processed_signal_length": lengthTensor,
		"cache_last_channel":      channelTensor,
		"cache_last_time":         timeTensor,
		"cache_last_channel_len":  channelLenTensor,
	})
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: run encoder: %v", ErrModel, err)
	}

	encodedTensor, ok := outputs["encoded"]
	if !ok {
		return encoderResult{}, fmt.Errorf("%w: encoder output missing \"encoded\"", ErrModel)
	}

	encoded, err := onnx.ExtractFloat32(encodedTensor)
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: extract encoded: %v", ErrModel, err)
	}

	encLen, err := onnx.ExtractInt64(outputs["encoded_len"])
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: extract encoded_len: %v", ErrModel, err)
	}

	if len(encLen) == 0 {
		return encoderResult{}, fmt.Errorf("%w: encoded_len output was empty", ErrModel)
	}

	encodedWidth := int(encLen[0])
	if shape := encodedTensor.Shape(); len(shape) == 3 {
		encodedWidth = int(shape[2])
	}

	nextChannel, err := onnx.ExtractFloat32(outputs["cache_last_channel_next"])
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: extract cache_last_channel_next: %v", ErrModel, err)
	}

	nextTime, err := onnx.ExtractFloat32(outputs["cache_last_time_next"])
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: extract cache_last_time_next: %v", ErrModel, err)
	}

	nextLen, err := onnx.ExtractInt64(outputs["cache_last_channel_len_next"])
	if err != nil {
		return encoderResult{}, fmt.Errorf("%w: extract cache_last_channel_len_next: %v", ErrModel, err)
	}

	return encoderResult{
		Encoded:      encoded,
		EncodedWidth: encodedWidth,
		FrameLen:     int(encLen[0]),
		NextCache: EncoderCache{
			LastChannel:    nextChannel,
			LastTime:       nextTime,
			LastChannelLen: nextLen,
		},
	}, nil
}
