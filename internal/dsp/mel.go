package dsp

import "math"

// Slaney mel-scale constants (matches librosa's htk=False scale).
const (
	melFSp       = 200.0 / 3.0
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
	melLogStep   = 0.06875177742094912
)

// HzToMelSlaney converts a frequency in Hz to the Slaney mel scale.
func HzToMelSlaney(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSp
	}

	return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
}

// MelToHzSlaney converts a Slaney mel-scale value back to Hz.
func MelToHzSlaney(mel float64) float64 {
	if mel < melMinLogMel {
		return mel * melFSp
	}

	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
}

// MelFilterbank builds an (nMels x nFFT/2+1) triangular filterbank on the
// Slaney mel scale, matching librosa's htk=False, norm="slaney" filters:
// each triangle is scaled by 2/(hz[i+2]-hz[i]) so that mel bands of equal
// energy stay roughly equal after integration, not equal peak height.
func MelFilterbank(sampleRate, nFFT, nMels int) [][]float64 {
	bins := nFFT/2 + 1

	fftFreqs := make([]float64, bins)
	for k := range bins {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}

	melMin := HzToMelSlaney(0)
	melMax := HzToMelSlaney(float64(sampleRate) / 2)

	melPoints := linspace(melMin, melMax, nMels+2)

	hzPoints := make([]float64, len(melPoints))
	for i, m := range melPoints {
		hzPoints[i] = MelToHzSlaney(m)
	}

	fdiff := make([]float64, len(hzPoints)-1)
	for i := range fdiff {
		fdiff[i] = hzPoints[i+1] - hzPoints[i]
	}

	weights := make([][]float64, nMels)
	for i := range nMels {
		row := make([]float64, bins)

		for k := range bins {
			lower := -(hzPoints[i] - fftFreqs[k]) / fdiff[i]
			upper := (hzPoints[i+2] - fftFreqs[k]) / fdiff[i+1]

			v := math.Min(lower, upper)
			if v < 0 {
				v = 0
			}

			row[k] = v
		}

		enorm := 2.0 / (hzPoints[i+2] - hzPoints[i])
		for k := range row {
			row[k] *= enorm
		}

		weights[i] = row
	}

	return weights
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}

	step := (stop - start) / float64(n-1)
	for i := range n {
		out[i] = start + step*float64(i)
	}

	return out
}
