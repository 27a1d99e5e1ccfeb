package vocab

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Detokenizer turns a sequence of SentencePiece token ids into display text.
// It applies the SentencePiece ▁-prefix convention, a digit-spacing
// heuristic that restores the word boundary SentencePiece drops before
// pure-digit tokens, and Unicode NFC normalization on the result. Unlike
// the reference decoder this splits out of, the heuristic here applies to
// every model profile rather than one decoder variant, since nothing about
// it is specific to a particular acoustic model.
type Detokenizer struct {
	vocab *Vocabulary
}

// NewDetokenizer builds a detokenizer backed by vocab.
func NewDetokenizer(vocab *Vocabulary) *Detokenizer {
	return &Detokenizer{vocab: vocab}
}

// Decode joins the pieces for ids into normalized display text, dropping
// special tokens (anything of the form "<...>" except "<unk>"). It does
// NOT trim the leading word-boundary space a sentence-initial piece
// leaves behind — callers building a live transcript by concatenating
// successive deltas need that space to reproduce the same text regardless
// of where a chunk boundary falls. The digit-spacing heuristic sees only
// ids, so a pure-digit piece at the start of ids gets no restored space;
// TimedPieces over the full id history gives each token's text in context.
// Use DecodeTranscript for a final, trimmed transcript.
func (d *Detokenizer) Decode(ids []int) string {
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = d.vocab.Piece(id)
	}

	return DecodePieces(pieces)
}

// DecodeTranscript is Decode with the single leading word-boundary space
// trimmed, for presenting a complete transcript rather than a delta meant
// to be concatenated with others.
func (d *Detokenizer) DecodeTranscript(ids []int) string {
	return strings.TrimLeft(d.Decode(ids), " ")
}

// TimedPiece is the per-token display view of one decoded id: the exact
// text that token contributes, with the digit-spacing heuristic already
// resolved against the tokens decoded before it.
type TimedPiece struct {
	Text string
}

// TimedPieces returns the per-token display view for ids, in order. It
// applies the same rules as Decode but reports each token's contribution
// individually instead of one joined string, for callers that want
// per-token (e.g. word-timed) output.
func (d *Detokenizer) TimedPieces(ids []int) []TimedPiece {
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = d.vocab.Piece(id)
	}

	return timedPiecesFromStrings(pieces)
}

// DecodePieces applies the detokenization rules directly to already
// resolved piece strings, for callers that already have text rather than
// ids (e.g. cross-checking against a second tokenizer implementation). It
// does not trim the leading word-boundary space; see Decode.
func DecodePieces(pieces []string) string {
	var full strings.Builder

	for _, tp := range timedPiecesFromStrings(pieces) {
		full.WriteString(tp.Text)
	}

	return norm.NFC.String(full.String())
}

// timedPiecesFromStrings walks pieces once, applying the ▁-prefix
// replacement, digit-spacing heuristic, and special-token drop rules, and
// returns each token's resulting display text (empty for dropped special
// tokens) in input order.
func timedPiecesFromStrings(pieces []string) []TimedPiece {
	out := make([]TimedPiece, len(pieces))

	var full strings.Builder

	for i, piece := range pieces {
		display := strings.ReplaceAll(piece, "▁", " ")

		if full.Len() > 0 && !strings.HasPrefix(display, " ") && isAllDigits(display) {
			if needsDigitSpace(full.String()) {
				display = " " + display
			}
		}

		if isSpecialToken(piece) {
			continue
		}

		full.WriteString(display)
		out[i] = TimedPiece{Text: display}
	}

	return out
}

// needsDigitSpace reports whether a pure-digit token following text should
// get a restored space. SentencePiece drops the word-boundary marker
// before digits, producing "at60" instead of "at 60"; a single trailing
// uppercase letter is treated as an alphanumeric code (A4, B12) and left
// joined, but the lowercase article "a" still gets its space back.
func needsDigitSpace(prefix string) bool {
	runes := []rune(prefix)

	trailingLetters := 0
	for i := len(runes) - 1; i >= 0; i-- {
		if !isAlpha(runes[i]) {
			break
		}

		trailingLetters++
	}

	if trailingLetters == 0 {
		return false
	}

	lastChar := runes[len(runes)-1]
	isArticleA := trailingLetters == 1 && lastChar == 'a'

	return trailingLetters > 1 || isArticleA
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpecialToken(piece string) bool {
	return strings.HasPrefix(piece, "<") && strings.HasSuffix(piece, ">") && piece != "<unk>"
}
