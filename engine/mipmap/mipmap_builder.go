package mipmap

import (
	"time"

	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// GeneratorBuilderOption is a functional option applied to a Generator during construction via NewGenerator.
type GeneratorBuilderOption func(*generator)

// WithFormat sets the texture format of generated chains. Defaults to RGBA8Unorm.
//
// Parameters:
//   - format: a filterable, renderable color format with four 8-bit channels; NewGenerator rejects others
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the format option to a generator
func WithFormat(format wgpu.TextureFormat) GeneratorBuilderOption {
	return func(g *generator) {
		g.format = format
	}
}

// WithPassClearColor sets the color each mip pass clears its target to before drawing. Defaults to white.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - GeneratorBuilderOption: a function that applies the clear color option to a generator
func WithPassClearColor(c wgpu.Color) GeneratorBuilderOption {
	return func(g *generator) {
		g.clearColor = c
	}
}

// WithDownsampleShader replaces the built-in box filter. The shader must satisfy the texture/sampler contract.
func WithDownsampleShader(s shader.Shader) GeneratorBuilderOption {
	return func(g *generator) {
		g.shader = s
	}
}

// WithGeneratorLogger sets the logrus entry the generator logs through.
func WithGeneratorLogger(log *logrus.Entry) GeneratorBuilderOption {
	return func(g *generator) {
		g.log = log.WithField("component", "mipmap")
	}
}

// ReaderBuilderOption is a functional option applied to a Reader during construction via NewReader.
type ReaderBuilderOption func(*Reader)

// WithTimeout bounds how long Await waits for the map callback. Values <= 0 keep the default.
//
// Parameters:
//   - timeout: the longest wait for one readback
//
// Returns:
//   - ReaderBuilderOption: a function that applies the timeout option to a Reader
func WithTimeout(timeout time.Duration) ReaderBuilderOption {
	return func(r *Reader) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithPollInterval sets the pause between non-blocking polls while awaiting a map.
func WithPollInterval(interval time.Duration) ReaderBuilderOption {
	return func(r *Reader) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// WithDepadWorkers sets how many workers remove row padding from large readbacks, at most 8. 1 disables the pool.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - ReaderBuilderOption: a function that applies the worker option to a Reader
func WithDepadWorkers(workers int) ReaderBuilderOption {
	return func(r *Reader) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

// WithReaderLogger sets the logrus entry the reader logs through.
func WithReaderLogger(log *logrus.Entry) ReaderBuilderOption {
	return func(r *Reader) {
		r.log = log.WithField("component", "mipmap")
	}
}
