package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrMissingEntryPoint is returned when a render module lacks a vertex or fragment stage.
	ErrMissingEntryPoint = errors.New("missing entry point")

	// ErrBindingContract is returned when a shader does not declare the texture + sampler layout.
	ErrBindingContract = errors.New("binding contract violated")
)

const (
	// TextureBinding is the binding index of the sampled texture in group 0.
	TextureBinding = 0

	// SamplerBinding is the binding index of the filtering sampler in group 0.
	SamplerBinding = 1
)

// ValidateTextureSamplerContract checks that a shader declares exactly the layout shared by the composite
// and mip downsample passes: group 0 holds a float texture_2d at binding 0 and a filtering sampler at
// binding 1, with vs_main and fs_main entry points.
//
// Parameters:
//   - s: the shader to check
//
// Returns:
//   - error: a wrapped ErrBindingContract or ErrMissingEntryPoint describing the first mismatch, or nil
func ValidateTextureSamplerContract(s Shader) error {
	if s.VertexEntryPoint() != DefaultVertexEntryPoint || s.FragmentEntryPoint() != DefaultFragmentEntryPoint {
		return fmt.Errorf("shader %s: %w: want %s/%s, have %s/%s", s.Key(), ErrMissingEntryPoint,
			DefaultVertexEntryPoint, DefaultFragmentEntryPoint, s.VertexEntryPoint(), s.FragmentEntryPoint())
	}

	layouts := s.BindGroupLayoutDescriptors()
	if len(layouts) != 1 {
		return fmt.Errorf("shader %s: %w: declares %d bind groups, want 1", s.Key(), ErrBindingContract, len(layouts))
	}
	entries := s.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 2 {
		return fmt.Errorf("shader %s: %w: group 0 has %d bindings, want 2", s.Key(), ErrBindingContract, len(entries))
	}

	texture, sampler := entries[0], entries[1]
	if texture.Binding != TextureBinding ||
		texture.Texture.ViewDimension != wgpu.TextureViewDimension2D ||
		texture.Texture.SampleType != wgpu.TextureSampleTypeFloat ||
		texture.Texture.Multisampled {
		return fmt.Errorf("shader %s: %w: binding %d must be texture_2d<f32>", s.Key(), ErrBindingContract, TextureBinding)
	}
	if sampler.Binding != SamplerBinding || sampler.Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		return fmt.Errorf("shader %s: %w: binding %d must be a filtering sampler", s.Key(), ErrBindingContract, SamplerBinding)
	}
	return nil
}
