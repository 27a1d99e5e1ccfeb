package asr

// EncoderCache holds the three tensors the cache-aware streaming encoder
// carries between chunks. Shapes follow the profile's [L, 1, C, H] /
// [L, 1, H, K] / [1] layout; all three are flattened row-major, since
// that is the layout onnx.Tensor expects.
type EncoderCache struct {
	LastChannel    []float32 // [L, 1, C, H]
	LastTime       []float32 // [L, 1, H, K]
	LastChannelLen []int64   // [1]
}

// NewEncoderCache builds a zero-initialized cache for the given profile.
func NewEncoderCache(p Profile) EncoderCache {
	return EncoderCache{
		LastChannel:    make([]float32, p.NumLayers*p.LeftContext*p.HiddenDim),
		LastTime:       make([]float32, p.NumLayers*p.HiddenDim*p.ConvContext),
		LastChannelLen: []int64{0},
	}
}

// Reset zeros the cache in place without reallocating, matching the shape
// it was constructed with.
func (c *EncoderCache) Reset() {
	for i := range c.LastChannel {
		c.LastChannel[i] = 0
	}

	for i := range c.LastTime {
		c.LastTime[i] = 0
	}

	c.LastChannelLen[0] = 0
}

// Clone returns a deep copy. The Recognizer does not need it to protect
// its live cache: applyPumpResult assigns the pump's NextCache only after
// both graph calls succeed.
func (c EncoderCache) Clone() EncoderCache {
	return EncoderCache{
		LastChannel:    append([]float32(nil), c.LastChannel...),
		LastTime:       append([]float32(nil), c.LastTime...),
		LastChannelLen: append([]int64(nil), c.LastChannelLen...),
	}
}

// PredictorState holds the two RNN-T predictor LSTM state tensors, each
// shaped [layers, 1, D].
type PredictorState struct {
	State1 []float32
	State2 []float32
}

// NewPredictorState builds a zero-initialized predictor state for p.
func NewPredictorState(p Profile) PredictorState {
	size := p.PredictorLayers * p.PredictorDim

	return PredictorState{
		State1: make([]float32, size),
		State2: make([]float32, size),
	}
}

// Reset zeros both state tensors in place.
func (s *PredictorState) Reset() {
	for i := range s.State1 {
		s.State1[i] = 0
	}

	for i := range s.State2 {
		s.State2[i] = 0
	}
}

// Clone returns a deep copy.
func (s PredictorState) Clone() PredictorState {
	return PredictorState{
		State1: append([]float32(nil), s.State1...),
		State2: append([]float32(nil), s.State2...),
	}
}
