//go:build coreml

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderCoreML = "coreml"

func init() {
	registerProvider(ProviderCoreML, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderCoreML(ort.CoreMLProviderOptions{})
	})
}
