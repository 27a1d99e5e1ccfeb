//go:build migraphx

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderMIGraphX = "migraphx"

func init() {
	registerProvider(ProviderMIGraphX, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderMIGraphX(ort.MIGraphXProviderOptions{})
	})
}
