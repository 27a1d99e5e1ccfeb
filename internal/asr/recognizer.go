package asr

import (
	"context"
	"fmt"

	"github.com/example/streamcap/internal/features"
	"github.com/example/streamcap/internal/onnx"
	"github.com/example/streamcap/internal/vocab"
	"golang.org/x/text/unicode/norm"
)

// Recognizer owns every piece of mutable state for one utterance stream:
// the encoder cache, predictor state, growing audio buffer, and token
// stream. It is not internally synchronized — callers sharing one
// instance across goroutines must serialize access themselves — but the
// two graph sessions it drives may be shared read-only across many
// Recognizers.
type Recognizer struct {
	profile Profile
	encoder *encoderDriver
	decoder *decoderDriver
	vocab   *vocab.Vocabulary
	detok   *vocab.Detokenizer
	extract *features.Extractor

	// offlineExtract computes the normalized log-mel front-end used only
	// by TranscribeAudio's initial full-buffer pass; it must never be
	// substituted for extract in the streaming path.
	offlineExtract *features.OfflineExtractor

	cache     EncoderCache
	state     PredictorState
	lastToken int

	audioBuffer      []float32
	processedSamples int
	chunkIdx         int
	tokenStream      []int

	// chunkSizeMel is always expressed in mel frames and drives the
	// encoder pump/buffer bookkeeping, regardless of which unit the
	// profile reports through ChunkSize().
	chunkSizeMel    int
	chunkSizeNative int

	closer func()
}

// NewRecognizer builds a Recognizer around already-constructed graph
// runners and a parsed vocabulary. chunkSize, if non-nil, overrides the
// profile's default and is interpreted in the profile's native unit
// (mel frames for ProfileNemotron, raw audio samples for ProfileEOU).
func NewRecognizer(profile Profile, encoderRunner, decoderRunner onnx.GraphRunner, vocabulary *vocab.Vocabulary, chunkSize *int) (*Recognizer, error) {
	if vocabulary == nil || vocabulary.Size() == 0 {
		return nil, fmt.Errorf("%w: vocabulary must not be empty", ErrConfiguration)
	}

	if encoderRunner == nil || decoderRunner == nil {
		return nil, fmt.Errorf("%w: encoder and decoder runners are required", ErrConfiguration)
	}

	native := profile.DefaultChunkSize
	if chunkSize != nil {
		native = *chunkSize
	}

	if native <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", ErrConfiguration)
	}

	melChunk := native
	if profile.ChunkUnitIsSamples {
		melChunk = native / HopLength
		if melChunk <= 0 {
			return nil, fmt.Errorf("%w: chunk size in samples too small for one mel frame", ErrConfiguration)
		}
	}

	r := &Recognizer{
		profile: profile,
		encoder: &encoderDriver{runner: encoderRunner, profile: profile},
		decoder: &decoderDriver{runner: decoderRunner, profile: profile},
		vocab:   vocabulary,
		detok:   vocab.NewDetokenizer(vocabulary),
		extract: features.NewExtractor(),

		offlineExtract: features.NewOfflineExtractor(),

		cache:     NewEncoderCache(profile),
		state:     NewPredictorState(profile),
		lastToken: profile.BlankID,

		chunkSizeMel:    melChunk,
		chunkSizeNative: native,
	}

	return r, nil
}

// Close releases any resources this Recognizer exclusively owns (set by
// the FromDir/FromBytes constructors). Calling Close on a Recognizer built
// around externally-owned runners is a no-op.
func (r *Recognizer) Close() {
	if r.closer != nil {
		r.closer()
		r.closer = nil
	}
}

// ChunkSize reports the configured chunk size in the profile's native
// unit: mel frames for ProfileNemotron, raw audio samples for ProfileEOU.
func (r *Recognizer) ChunkSize() int {
	return r.chunkSizeNative
}

// FlushSampleCount reports the number of raw audio samples one zero-filled
// flush chunk must contain (chunkSizeMel*HopLength audio samples), in
// whichever unit the caller needs to feed TranscribeChunk — regardless of
// whether the profile's native ChunkSize() unit is mel frames or samples.
func (r *Recognizer) FlushSampleCount() int {
	return r.chunkSizeMel * HopLength
}

// Reset clears all per-utterance state back to a freshly constructed
// Recognizer's state.
func (r *Recognizer) Reset() {
	r.cache.Reset()
	r.state.Reset()
	r.lastToken = r.profile.BlankID
	r.audioBuffer = r.audioBuffer[:0]
	r.processedSamples = 0
	r.chunkIdx = 0
	r.tokenStream = r.tokenStream[:0]
}

// GetTranscript returns the full decoded transcript accumulated since the
// last Reset.
func (r *Recognizer) GetTranscript() string {
	return r.detok.DecodeTranscript(r.tokenStream)
}

// TranscribeChunk appends samples to the internal audio buffer and pumps
// as many full chunks as are now available, returning the text delta
// produced by the newly decoded tokens. A nil or empty samples slice with
// no buffered backlog is a no-op that returns the empty string.
func (r *Recognizer) TranscribeChunk(ctx context.Context, samples []float32) (string, error) {
	if len(samples) > 0 {
		r.audioBuffer = append(r.audioBuffer, samples...)
	}

	var emitted []int

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrModel, ctx.Err())
		default:
		}

		tokens, pumped, err := r.pumpOnce(ctx)
		if err != nil {
			return "", err
		}

		if !pumped {
			break
		}

		emitted = append(emitted, tokens...)
	}

	if len(emitted) == 0 {
		return "", nil
	}

	// Render the new tokens in the context of the whole token stream, so the
	// digit-spacing heuristic sees the text before this call's first token
	// and concatenated deltas do not depend on where chunk boundaries fall.
	pieces := r.detok.TimedPieces(r.tokenStream)

	var delta string
	for _, tp := range pieces[len(pieces)-len(emitted):] {
		delta += tp.Text
	}

	return norm.NFC.String(delta), nil
}

// pumpOnce assembles and runs one encoder/decoder pump if enough new mel
// frames are available, reporting pumped=false (no error) when there
// isn't enough buffered audio yet.
func (r *Recognizer) pumpOnce(ctx context.Context) ([]int, bool, error) {
	totalAudio := len(r.audioBuffer)
	if totalAudio < WinLength {
		return nil, false, nil
	}

	melFramesF32, err := r.extract.Compute(r.audioBuffer)
	if err != nil {
		return nil, false, fmt.Errorf("%w: compute mel features: %v", ErrModel, err)
	}

	totalMelFrames := len(melFramesF32)
	processedMelFrames := r.processedSamples / HopLength
	availableNewFrames := totalMelFrames - processedMelFrames

	if availableNewFrames < r.chunkSizeMel {
		return nil, false, nil
	}

	expectedSize := r.profile.PreEncodeCache + r.chunkSizeMel
	isFirstChunk := r.chunkIdx == 0

	result, err := r.encoder.pump(ctx, melFramesF32, processedMelFrames, r.chunkSizeMel, expectedSize, expectedSize, isFirstChunk, r.cache)
	if err != nil {
		return nil, false, err
	}

	validTokens, err := r.applyPumpResult(ctx, result)
	if err != nil {
		return nil, false, err
	}

	r.processedSamples += r.chunkSizeMel * HopLength
	r.chunkIdx++
	r.truncateBuffer()

	return validTokens, true, nil
}

// applyPumpResult runs the decoder over one encoder pump's output and, only
// once both graph calls have succeeded, mutates cache/predictor/token
// state. A failure leaves the Recognizer exactly as it was before the call.
func (r *Recognizer) applyPumpResult(ctx context.Context, result encoderResult) ([]int, error) {
	decoded, err := r.decoder.decode(ctx, result.Encoded, result.EncodedWidth, result.FrameLen, r.state, r.lastToken)
	if err != nil {
		return nil, err
	}

	r.cache = result.NextCache
	r.state = decoded.State
	r.lastToken = decoded.LastToken

	validTokens := make([]int, 0, len(decoded.Tokens))
	for _, t := range decoded.Tokens {
		if t < r.profile.VocabSize {
			validTokens = append(validTokens, t)
			r.tokenStream = append(r.tokenStream, t)
		}
	}

	return validTokens, nil
}

// truncateBuffer drops consumed audio from the front of the buffer once
// it grows past twice the window the next pump could possibly need,
// keeping memory bounded without discarding context the encoder still
// needs.
func (r *Recognizer) truncateBuffer() {
	keepSamples := (r.profile.PreEncodeCache+r.chunkSizeMel)*HopLength + WinLength
	if len(r.audioBuffer) <= keepSamples*2 {
		return
	}

	remove := len(r.audioBuffer) - keepSamples
	if remove > r.processedSamples {
		remove = r.processedSamples
	}

	r.audioBuffer = append(r.audioBuffer[:0], r.audioBuffer[remove:]...)
	r.processedSamples -= remove
}

// TranscribeAudio resets the Recognizer and runs a complete offline pass
// over samples: the whole signal is mel-transformed once up front using the
// normalized offline log-mel front-end (distinct from the streaming path's
// unnormalized one — the two MUST NOT be mixed) and walked in
// chunkSizeMel-frame windows, each encoder call's length argument set to
// PreEncodeCache+main_len (the real frame count in that window) rather than
// the streaming path's fixed expected_size — the offline and streaming
// conventions differ here because the encoder graph was exported expecting
// exactly this distinction. Three zero-filled flush chunks then drain
// encoder lookahead and any pending predictor emissions through the
// ordinary streaming pump, and the full transcript is returned.
func (r *Recognizer) TranscribeAudio(ctx context.Context, samples []float32) (string, error) {
	r.Reset()
	r.audioBuffer = append(r.audioBuffer, samples...)

	melFrames, err := r.offlineExtract.Compute(r.audioBuffer)
	if err != nil {
		return "", fmt.Errorf("%w: compute mel features: %v", ErrModel, err)
	}

	totalFrames := len(melFrames)

	for bufferIdx := 0; bufferIdx < totalFrames; bufferIdx += r.chunkSizeMel {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrModel, ctx.Err())
		default:
		}

		chunkEnd := bufferIdx + r.chunkSizeMel
		if chunkEnd > totalFrames {
			chunkEnd = totalFrames
		}
		mainLen := chunkEnd - bufferIdx

		expectedSize := r.profile.PreEncodeCache + r.chunkSizeMel
		chunkLength := r.profile.PreEncodeCache + mainLen
		isFirstChunk := r.chunkIdx == 0

		result, err := r.encoder.pump(ctx, melFrames, bufferIdx, r.chunkSizeMel, expectedSize, chunkLength, isFirstChunk, r.cache)
		if err != nil {
			return "", err
		}

		if _, err := r.applyPumpResult(ctx, result); err != nil {
			return "", err
		}

		r.chunkIdx++
	}

	r.processedSamples = totalFrames * HopLength

	flushChunk := make([]float32, r.chunkSizeMel*HopLength)
	for i := 0; i < 3; i++ {
		if _, err := r.TranscribeChunk(ctx, flushChunk); err != nil {
			return "", err
		}
	}

	return r.GetTranscript(), nil
}
