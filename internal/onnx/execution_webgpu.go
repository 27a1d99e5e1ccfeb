//go:build webgpu

package onnx

import (
	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

const ProviderWebGPU = "webgpu"

func init() {
	registerProvider(ProviderWebGPU, func(options *ort.SessionOptions) error {
		return options.AppendExecutionProviderWebGPU(ort.WebGPUProviderOptions{})
	})
}
