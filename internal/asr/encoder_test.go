package asr

import (
	"context"
	"errors"
	"testing"

	"github.com/example/streamcap/internal/onnx"
)

var errTestRunnerFailure = errors.New("simulated runner failure")

// capturingEncoderRunner records the tensors it was invoked with and
// returns a fixed encoder output/cache shaped for profile p.
func capturingEncoderRunner(p Profile, expectedSize int, captured *map[string]*onnx.Tensor) *fakeRunner {
	return &fakeRunner{
		fn: func(_ context.Context, inputs map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error) {
			*captured = inputs

			encoded := make([]float32, p.HiddenDim*expectedSize)

			return map[string]*onnx.Tensor{
				"encoded":                     mustTensorF32(encoded, []int64{1, int64(p.HiddenDim), int64(expectedSize)}),
				"encoded_len":                 mustTensorI64([]int64{int64(expectedSize)}, []int64{1}),
				"cache_last_channel_next":     mustTensorF32(make([]float32, p.NumLayers*p.LeftContext*p.HiddenDim), []int64{int64(p.NumLayers), 1, int64(p.LeftContext), int64(p.HiddenDim)}),
				"cache_last_time_next":        mustTensorF32(make([]float32, p.NumLayers*p.HiddenDim*p.ConvContext), []int64{int64(p.NumLayers), 1, int64(p.HiddenDim), int64(p.ConvContext)}),
				"cache_last_channel_len_next": mustTensorI64([]int64{0}, []int64{1}),
			}, nil
		},
	}
}

func mustTensorI64(data []int64, shape []int64) *onnx.Tensor {
	tensor, err := onnx.NewTensor(data, shape)
	if err != nil {
		panic(err)
	}

	return tensor
}

func TestEncoderPump_FirstChunkZeroPadsPreEncodeCache(t *testing.T) {
	p := testProfile()
	expectedSize := p.PreEncodeCache + p.DefaultChunkSize // 1 + 2 = 3

	var captured map[string]*onnx.Tensor
	d := &encoderDriver{runner: capturingEncoderRunner(p, expectedSize, &captured), profile: p}

	melFrames := [][]float32{
		{1, 2},
		{3, 4},
	}

	cache := NewEncoderCache(p)

	_, err := d.pump(context.Background(), melFrames, 0, p.DefaultChunkSize, expectedSize, expectedSize, true, cache)
	if err != nil {
		t.Fatalf("pump: %v", err)
	}

	signal, err := onnx.ExtractFloat32(captured["processed_signal"])
	if err != nil {
		t.Fatalf("extract processed_signal: %v", err)
	}

	// layout: [mel][expectedSize], pre-encode slot (index 0 of each mel
	// row) must be zero, main chunk frames occupy indices 1 and 2.
	for m := 0; m < p.HiddenDim; m++ {
		if got := signal[m*expectedSize+0]; got != 0 {
			t.Errorf("mel %d pre-encode slot = %v, want 0 on first chunk", m, got)
		}
	}

	if got, want := signal[0*expectedSize+1], float32(1); got != want {
		t.Errorf("mel 0 frame 0 = %v, want %v", got, want)
	}

	if got, want := signal[1*expectedSize+1], float32(2); got != want {
		t.Errorf("mel 1 frame 0 = %v, want %v", got, want)
	}

	if got, want := signal[0*expectedSize+2], float32(3); got != want {
		t.Errorf("mel 0 frame 1 = %v, want %v", got, want)
	}
}

func TestEncoderPump_SubsequentChunkUsesCacheWindow(t *testing.T) {
	p := testProfile()
	expectedSize := p.PreEncodeCache + p.DefaultChunkSize // 3

	var captured map[string]*onnx.Tensor
	d := &encoderDriver{runner: capturingEncoderRunner(p, expectedSize, &captured), profile: p}

	// 4 mel frames total; main chunk starts at frame 2 (already consumed
	// frames 0-1), pre-encode cache pulls from frame 1 (cache_start =
	// max(0, 2-1) = 1).
	melFrames := [][]float32{
		{10, 20},
		{11, 21},
		{12, 22},
		{13, 23},
	}

	cache := NewEncoderCache(p)

	_, err := d.pump(context.Background(), melFrames, 2, p.DefaultChunkSize, expectedSize, expectedSize, false, cache)
	if err != nil {
		t.Fatalf("pump: %v", err)
	}

	signal, err := onnx.ExtractFloat32(captured["processed_signal"])
	if err != nil {
		t.Fatalf("extract processed_signal: %v", err)
	}

	// cache_offset = PreEncodeCache(1) - cache_frames(1) = 0, so slot 0
	// holds mel frame 1, slots 1-2 hold main frames 2-3.
	if got, want := signal[0*expectedSize+0], float32(11); got != want {
		t.Errorf("mel 0 cache slot = %v, want %v", got, want)
	}

	if got, want := signal[0*expectedSize+1], float32(12); got != want {
		t.Errorf("mel 0 main slot 0 = %v, want %v", got, want)
	}

	if got, want := signal[0*expectedSize+2], float32(13); got != want {
		t.Errorf("mel 0 main slot 1 = %v, want %v", got, want)
	}
}

// TestEncoderPump_EncodedWidthComesFromTensorShapeNotEncodedLen guards
// against reusing encoded_len as the stride for indexing Encoded: here the
// graph reports fewer valid frames than the tensor actually carries, and
// EncodedWidth must reflect the tensor's own shape, not encoded_len.
func TestEncoderPump_EncodedWidthComesFromTensorShapeNotEncodedLen(t *testing.T) {
	p := testProfile()
	expectedSize := p.PreEncodeCache + p.DefaultChunkSize

	const tensorWidth = 5
	const validLen = 3

	runner := &fakeRunner{
		fn: func(context.Context, map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error) {
			encoded := make([]float32, p.HiddenDim*tensorWidth)

			return map[string]*onnx.Tensor{
				"encoded":                     mustTensorF32(encoded, []int64{1, int64(p.HiddenDim), tensorWidth}),
				"encoded_len":                 mustTensorI64([]int64{validLen}, []int64{1}),
				"cache_last_channel_next":     mustTensorF32(make([]float32, p.NumLayers*p.LeftContext*p.HiddenDim), []int64{int64(p.NumLayers), 1, int64(p.LeftContext), int64(p.HiddenDim)}),
				"cache_last_time_next":        mustTensorF32(make([]float32, p.NumLayers*p.HiddenDim*p.ConvContext), []int64{int64(p.NumLayers), 1, int64(p.HiddenDim), int64(p.ConvContext)}),
				"cache_last_channel_len_next": mustTensorI64([]int64{0}, []int64{1}),
			}, nil
		},
	}

	d := &encoderDriver{runner: runner, profile: p}
	cache := NewEncoderCache(p)
	melFrames := [][]float32{{1, 2}, {3, 4}}

	result, err := d.pump(context.Background(), melFrames, 0, p.DefaultChunkSize, expectedSize, expectedSize, true, cache)
	if err != nil {
		t.Fatalf("pump: %v", err)
	}

	if result.EncodedWidth != tensorWidth {
		t.Errorf("EncodedWidth = %d, want %d (tensor shape, not encoded_len)", result.EncodedWidth, tensorWidth)
	}

	if result.FrameLen != validLen {
		t.Errorf("FrameLen = %d, want %d (encoded_len)", result.FrameLen, validLen)
	}
}

func TestEncoderPump_CacheReplacedOnlyOnSuccess(t *testing.T) {
	p := testProfile()
	expectedSize := p.PreEncodeCache + p.DefaultChunkSize

	failing := &fakeRunner{
		fn: func(context.Context, map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error) {
			return nil, errTestRunnerFailure
		},
	}

	d := &encoderDriver{runner: failing, profile: p}
	cache := NewEncoderCache(p)
	melFrames := [][]float32{{1, 2}, {3, 4}}

	result, err := d.pump(context.Background(), melFrames, 0, p.DefaultChunkSize, expectedSize, expectedSize, true, cache)
	if err == nil {
		t.Fatal("expected error from failing runner")
	}

	if result.NextCache.LastChannel != nil || result.NextCache.LastTime != nil || result.NextCache.LastChannelLen != nil {
		t.Errorf("failed pump returned a replacement cache: %+v", result.NextCache)
	}
}
