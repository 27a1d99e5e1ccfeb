package asr

import "testing"

func testProfile() Profile {
	return Profile{
		Name:             "test",
		NumLayers:        1,
		HiddenDim:        2,
		LeftContext:      2,
		ConvContext:      1,
		PredictorDim:     2,
		PredictorLayers:  1,
		VocabSize:        3,
		BlankID:          3,
		DefaultChunkSize: 2,
		PreEncodeCache:   1,
	}
}

func TestNewEncoderCache_Shapes(t *testing.T) {
	p := testProfile()
	c := NewEncoderCache(p)

	if got, want := len(c.LastChannel), p.NumLayers*p.LeftContext*p.HiddenDim; got != want {
		t.Errorf("len(LastChannel) = %d, want %d", got, want)
	}

	if got, want := len(c.LastTime), p.NumLayers*p.HiddenDim*p.ConvContext; got != want {
		t.Errorf("len(LastTime) = %d, want %d", got, want)
	}

	if len(c.LastChannelLen) != 1 || c.LastChannelLen[0] != 0 {
		t.Errorf("LastChannelLen = %v, want [0]", c.LastChannelLen)
	}
}

func TestEncoderCache_ResetZeroesInPlace(t *testing.T) {
	p := testProfile()
	c := NewEncoderCache(p)

	for i := range c.LastChannel {
		c.LastChannel[i] = 1
	}

	c.LastChannelLen[0] = 5

	c.Reset()

	for i, v := range c.LastChannel {
		if v != 0 {
			t.Fatalf("LastChannel[%d] = %v, want 0 after Reset", i, v)
		}
	}

	if c.LastChannelLen[0] != 0 {
		t.Errorf("LastChannelLen[0] = %v, want 0 after Reset", c.LastChannelLen[0])
	}
}

func TestEncoderCache_CloneIsIndependent(t *testing.T) {
	p := testProfile()
	c := NewEncoderCache(p)
	c.LastChannel[0] = 9

	clone := c.Clone()
	clone.LastChannel[0] = 42

	if c.LastChannel[0] != 9 {
		t.Errorf("original mutated through clone: LastChannel[0] = %v, want 9", c.LastChannel[0])
	}
}

func TestPredictorState_ResetAndClone(t *testing.T) {
	p := testProfile()
	s := NewPredictorState(p)

	if got, want := len(s.State1), p.PredictorLayers*p.PredictorDim; got != want {
		t.Errorf("len(State1) = %d, want %d", got, want)
	}

	s.State1[0] = 7
	clone := s.Clone()
	clone.State1[0] = 99

	if s.State1[0] != 7 {
		t.Errorf("original mutated through clone: State1[0] = %v, want 7", s.State1[0])
	}

	s.Reset()

	for i, v := range s.State1 {
		if v != 0 {
			t.Fatalf("State1[%d] = %v, want 0 after Reset", i, v)
		}
	}
}
