package vocab

import (
	"errors"
	"fmt"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

// ErrEmptyModelPath is returned when NewParityChecker is called with an
// empty model path.
var ErrEmptyModelPath = errors.New("vocab: sentencepiece model path must not be empty")

// ParityChecker loads the same SentencePiece model through the full
// unigram tokenizer implementation, independent of the hand-rolled
// protobuf scanner this package uses on the decode hot path. It exists to
// catch drift between the two parsers (e.g. a vocabulary upgrade that
// changes the piece table), not to serve production decode traffic.
type ParityChecker struct {
	proc gosp.Sentencepiece
}

// NewParityChecker loads modelPath with the full SentencePiece
// implementation.
func NewParityChecker(modelPath string) (*ParityChecker, error) {
	if modelPath == "" {
		return nil, ErrEmptyModelPath
	}

	proc, err := gosp.NewSentencepieceFromFile(modelPath, false)
	if err != nil {
		return nil, fmt.Errorf("vocab: load parity sentencepiece model %q: %w", modelPath, err)
	}

	return &ParityChecker{proc: proc}, nil
}

// Agrees re-tokenizes text with the full implementation and reports
// whether it produced the same token ids as got, which should be the
// output of the hand-rolled decode path's matching encode step.
func (p *ParityChecker) Agrees(text string, got []int) bool {
	ids := p.proc.TokenizeToIDs(text)

	if len(ids) != len(got) {
		return false
	}

	for i, id := range ids {
		if int(id) != got[i] {
			return false
		}
	}

	return true
}
