//go:build openvino

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderOpenVINO = "openvino"

func init() {
	registerProvider(ProviderOpenVINO, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderOpenVINO(ort.OpenVINOProviderOptions{})
	})
}
