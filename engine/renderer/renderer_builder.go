package renderer

import (
	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithImage sets the pixels drawn from the first frame. When not specified a small checkerboard is shown.
//
// Parameters:
//   - data: the RGBA pixels to display
//
// Returns:
//   - RendererBuilderOption: a function that applies the image option to a renderer
func WithImage(data common.TextureStagingData) RendererBuilderOption {
	return func(r *renderer) {
		r.image = &data
	}
}

// WithClearColor sets the color the render pass clears to before drawing. Defaults to opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithSampler overrides the sampler used to read the displayed texture.
// Zero fields fall back to clamp-to-edge addressing with linear filtering.
//
// Parameters:
//   - data: the sampler settings
//
// Returns:
//   - RendererBuilderOption: a function that applies the sampler option to a renderer
func WithSampler(data common.SamplerStagingData) RendererBuilderOption {
	return func(r *renderer) {
		r.samplerData = data
	}
}

// WithAlphaBlend blends the image over the clear color by its alpha instead of replacing it.
func WithAlphaBlend(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.alphaBlend = enabled
	}
}

// WithShader replaces the built-in composite shader. The shader must satisfy the texture/sampler binding contract.
//
// Parameters:
//   - s: the shader to draw with
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader option to a renderer
func WithShader(s shader.Shader) RendererBuilderOption {
	return func(r *renderer) {
		r.shader = s
	}
}

// WithLogger sets the logrus entry the renderer logs through.
func WithLogger(log *logrus.Entry) RendererBuilderOption {
	return func(r *renderer) {
		r.log = log.WithField("component", "renderer")
	}
}
