//go:build tensorrt

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderTensorRT = "tensorrt"

func init() {
	registerProvider(ProviderTensorRT, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderTensorRT(ort.TensorRTProviderOptions{})
	})
}
