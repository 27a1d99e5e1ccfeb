package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Server   ServerConfig  `mapstructure:"server"`
	ASR      ASRConfig     `mapstructure:"asr"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	ONNXManifest string `mapstructure:"onnx_manifest"`
	VocabModel   string `mapstructure:"vocab_model"`
}

type RuntimeConfig struct {
	Threads          int    `mapstructure:"threads"`
	InterOpThreads   int    `mapstructure:"inter_op_threads"`
	ExecutionProvider string `mapstructure:"execution_provider"`
	ORTLibraryPath   string `mapstructure:"ort_library_path"`
	ORTVersion       string `mapstructure:"ort_version"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_secs"`
	MaxFrameBytes   int    `mapstructure:"max_frame_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout_secs"`
}

type ASRConfig struct {
	Profile   string `mapstructure:"profile"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ONNXManifest: "models/onnx/manifest.json",
			VocabModel:   "models/tokenizer.model",
		},
		Runtime: RuntimeConfig{
			Threads:           4,
			InterOpThreads:    1,
			ExecutionProvider: "cpu",
			ORTLibraryPath:    "",
			ORTVersion:        "",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         2,
			ShutdownTimeout: 30,
			MaxFrameBytes:   1 << 20,
			RequestTimeout:  60,
		},
		ASR: ASRConfig{
			Profile:   ProfileNemotron,
			ChunkSize: 0,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-onnx-manifest", defaults.Paths.ONNXManifest, "Path to ONNX model manifest JSON (encoder + decoder_joint graphs)")
	fs.String("paths-vocab-model", defaults.Paths.VocabModel, "Path to SentencePiece tokenizer model")
	fs.Int("runtime-threads", defaults.Runtime.Threads, "ONNX Runtime intra-op thread count")
	fs.Int("runtime-inter-op-threads", defaults.Runtime.InterOpThreads, "ONNX Runtime inter-op thread count")
	fs.String("execution-provider", defaults.Runtime.ExecutionProvider, "ONNX Runtime execution provider (cpu|cuda|tensorrt|coreml|directml|migraphx|openvino|webgpu|nnapi)")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "WebSocket server listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent streaming connections for the serve command")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain timeout in seconds")
	fs.Int("max-frame-bytes", defaults.Server.MaxFrameBytes, "Maximum inbound websocket audio frame size in bytes")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request transcription timeout in seconds (stored in config; the server does not apply it)")
	fs.String("profile", defaults.ASR.Profile, "Model profile (nemotron|eou)")
	fs.Int("chunk-size", defaults.ASR.ChunkSize, "Override streaming chunk size in the profile's unit: mel frames for nemotron, samples for eou (0 = profile default)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("STREAMCAP")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "STREAMCAP_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("streamcap")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.onnx_manifest", c.Paths.ONNXManifest)
	v.SetDefault("paths.vocab_model", c.Paths.VocabModel)
	v.SetDefault("runtime.threads", c.Runtime.Threads)
	v.SetDefault("runtime.inter_op_threads", c.Runtime.InterOpThreads)
	v.SetDefault("runtime.execution_provider", c.Runtime.ExecutionProvider)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.shutdown_timeout_secs", c.Server.ShutdownTimeout)
	v.SetDefault("server.max_frame_bytes", c.Server.MaxFrameBytes)
	v.SetDefault("server.request_timeout_secs", c.Server.RequestTimeout)
	v.SetDefault("asr.profile", c.ASR.Profile)
	v.SetDefault("asr.chunk_size", c.ASR.ChunkSize)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.onnx_manifest", "paths-onnx-manifest")
	v.RegisterAlias("paths.vocab_model", "paths-vocab-model")
	v.RegisterAlias("runtime.threads", "runtime-threads")
	v.RegisterAlias("runtime.inter_op_threads", "runtime-inter-op-threads")
	v.RegisterAlias("runtime.execution_provider", "execution-provider")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("runtime.ort_version", "runtime-ort-version")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("server.shutdown_timeout_secs", "shutdown-timeout")
	v.RegisterAlias("server.max_frame_bytes", "max-frame-bytes")
	v.RegisterAlias("server.request_timeout_secs", "request-timeout")
	v.RegisterAlias("asr.profile", "profile")
	v.RegisterAlias("asr.chunk_size", "chunk-size")
	v.RegisterAlias("log_level", "log-level")
}
