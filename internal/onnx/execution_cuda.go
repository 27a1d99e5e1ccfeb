//go:build cuda

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderCUDA = "cuda"

func init() {
	registerProvider(ProviderCUDA, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderCUDA(ort.CUDAProviderOptions{})
	})
}
