//go:build directml

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderDirectML = "directml"

func init() {
	registerProvider(ProviderDirectML, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderDirectML(0)
	})
}
