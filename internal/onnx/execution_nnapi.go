//go:build nnapi

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderNNAPI = "nnapi"

func init() {
	registerProvider(ProviderNNAPI, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderNNAPI(0)
	})
}
