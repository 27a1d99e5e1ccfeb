package features

// ApplyMelFilterbank projects each frame's power spectrum onto the mel
// filterbank, producing one mel-energy vector per frame.
func ApplyMelFilterbank(frames [][]float64, filterbank [][]float64) [][]float64 {
	out := make([][]float64, len(frames))

	for f, spectrum := range frames {
		mel := make([]float64, len(filterbank))

		for m, row := range filterbank {
			var sum float64
			for k, w := range row {
				if k < len(spectrum) {
					sum += w * spectrum[k]
				}
			}

			mel[m] = sum
		}

		out[f] = mel
	}

	return out
}
