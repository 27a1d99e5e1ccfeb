package asr

import "errors"

// Sentinel errors identifying the broad category of failure, wrapped via
// fmt.Errorf("%w: ...", ...) so callers can classify with errors.Is while
// still getting a specific message.
var (
	// ErrConfiguration covers missing model/vocab files, unreadable
	// bytes, or audio presented with an incompatible sample rate/channel
	// count.
	ErrConfiguration = errors.New("asr: configuration error")

	// ErrTokenizer covers a malformed SentencePiece model stream: a
	// truncated varint or a model with zero recovered pieces.
	ErrTokenizer = errors.New("asr: tokenizer error")

	// ErrModel covers graph invocation failures, unexpected output
	// shapes, or tensor extraction failures.
	ErrModel = errors.New("asr: model error")

	// ErrAudio covers I/O-level failures surfaced by the audio loader.
	ErrAudio = errors.New("asr: audio error")
)
