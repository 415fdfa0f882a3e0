package shader

import "embed"

//go:embed wgsl/*.wgsl
var builtinFS embed.FS

const (
	// CompositeKey is the cache key of the built-in textured full-screen triangle shader.
	CompositeKey = "composite"

	// DownsampleKey is the cache key of the built-in mip downsample shader.
	DownsampleKey = "downsample"
)

// Composite returns the built-in shader that draws a texture over the whole render target.
func Composite() (Shader, error) {
	return NewShaderFromFS(CompositeKey, builtinFS, "wgsl/composite.wgsl")
}

// Downsample returns the built-in shader that renders one mip level from the level above it.
func Downsample() (Shader, error) {
	return NewShaderFromFS(DownsampleKey, builtinFS, "wgsl/downsample.wgsl")
}
