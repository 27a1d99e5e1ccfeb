// Package asr implements the streaming RNN-T speech recognizer: a
// cache-aware encoder driver paired with a greedy transducer decoder,
// wrapped in a single-threaded Recognizer that owns all mutable state for
// one utterance stream.
package asr

// Profile selects which acoustic model the Recognizer drives. The two
// profiles differ in encoder depth/width and in how their default chunk
// size is expressed (mel frames vs. raw audio samples); the mel front end
// is shared.
type Profile struct {
	Name string

	// Encoder cache dimensions.
	NumLayers  int // L
	HiddenDim  int // H
	LeftContext int // C
	ConvContext int // K

	// Predictor (decoder LSTM) dimensions.
	PredictorDim    int
	PredictorLayers int

	VocabSize int
	BlankID   int

	// DefaultChunkSize is expressed in mel frames for ProfileNemotron and
	// in raw audio samples for ProfileEOU.
	DefaultChunkSize int

	// ChunkUnitIsSamples is true when DefaultChunkSize (and any
	// caller-supplied chunk size) counts raw audio samples rather than
	// mel frames.
	ChunkUnitIsSamples bool

	PreEncodeCache int
}

// ProfileNemotron is the large, 24-layer streaming profile.
var ProfileNemotron = Profile{
	Name:             "nemotron",
	NumLayers:        24,
	HiddenDim:        1024,
	LeftContext:      70,
	ConvContext:      8,
	PredictorDim:     640,
	PredictorLayers:  2,
	VocabSize:        1024,
	BlankID:          1024,
	DefaultChunkSize: 56,
	PreEncodeCache:   9,
}

// ProfileEOU is the smaller, 17-layer profile used for short-utterance /
// end-of-utterance detection workloads. Its vocab size and blank id are
// not fixed ahead of time — they come from whatever vocabulary is loaded
// alongside the model — so NewEOUProfile fills them in at load time.
var ProfileEOU = Profile{
	Name:               "eou",
	NumLayers:          17,
	HiddenDim:          512,
	LeftContext:        70,
	ConvContext:        8,
	PredictorDim:       512,
	PredictorLayers:    2,
	DefaultChunkSize:   2560,
	ChunkUnitIsSamples: true,
	PreEncodeCache:     9,
}

// NewEOUProfile returns a copy of ProfileEOU with VocabSize/BlankID set
// from a loaded vocabulary's piece count, since the small profile's
// vocabulary is not fixed in advance.
func NewEOUProfile(vocabSize int) Profile {
	p := ProfileEOU
	p.VocabSize = vocabSize
	p.BlankID = vocabSize

	return p
}

const (
	// MaxSymbolsPerStep bounds the greedy decoder's inner loop so a
	// predictor that repeatedly emits the same non-blank token cannot
	// livelock the pump.
	MaxSymbolsPerStep = 10

	// mel front-end constants, shared by both profiles.
	SampleRate = 16000
	NFFT       = 512
	WinLength  = 400
	HopLength  = 160
	NMels      = 128
)
