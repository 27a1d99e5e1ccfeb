package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

func init() {
	registerProvider(ProviderCPU, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderCPU()
	})
}
