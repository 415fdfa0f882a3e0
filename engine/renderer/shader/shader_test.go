package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uniformTintSource = `
struct Params { tint: vec4<f32> };

@group(0) @binding(1) var samp: sampler;
@group(0) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(0) var<uniform> params: Params;
@group(1) @binding(1) var<storage, read_write> out_texels: array<u32>;
@group(2) @binding(0) var dst: texture_storage_2d<rgba8unorm, write>;

/* @vertex fn commented_out() {} */
@vertex
fn main_vs(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

// @fragment fn not_this_one() {}
@fragment
fn main_fs() -> @location(0) vec4<f32> {
    return params.tint;
}
`

func TestBuiltinShadersSatisfyContract(t *testing.T) {
	for _, load := range []func() (Shader, error){Composite, Downsample} {
		s, err := load()
		require.NoError(t, err)
		assert.NoError(t, ValidateTextureSamplerContract(s))
		assert.Equal(t, "source_texture", s.BindGroupVarName(0, TextureBinding))
		assert.Equal(t, "source_sampler", s.BindGroupVarName(0, SamplerBinding))
		require.NotNil(t, s.Module())
		assert.Equal(t, s.Key(), s.Module().Label)
		assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)
	}
}

func TestNewShaderParsesLayouts(t *testing.T) {
	s, err := NewShader("tint", uniformTintSource)
	require.NoError(t, err)

	assert.Equal(t, "main_vs", s.VertexEntryPoint())
	assert.Equal(t, "main_fs", s.FragmentEntryPoint())

	layouts := s.BindGroupLayoutDescriptors()
	require.Len(t, layouts, 3)

	group0 := s.BindGroupLayoutDescriptor(0).Entries
	require.Len(t, group0, 2)
	assert.Equal(t, uint32(0), group0[0].Binding, "entries are sorted by binding")
	assert.Equal(t, wgpu.TextureViewDimension2D, group0[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, group0[0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, group0[1].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, group0[0].Visibility)

	group1 := s.BindGroupLayoutDescriptor(1).Entries
	require.Len(t, group1, 2)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, group1[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, group1[1].Buffer.Type)

	group2 := s.BindGroupLayoutDescriptor(2).Entries
	require.Len(t, group2, 1)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, group2[0].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, group2[0].StorageTexture.Access)

	assert.Equal(t, "params", s.BindGroupVarName(1, 0))
	assert.Equal(t, "", s.BindGroupVarName(5, 0))
}

func TestContractRejectsOtherLayouts(t *testing.T) {
	s, err := NewShader("tint", uniformTintSource)
	require.NoError(t, err)

	err = ValidateTextureSamplerContract(s)
	assert.ErrorIs(t, err, ErrMissingEntryPoint)

	swapped := `
@group(0) @binding(0) var samp: sampler;
@group(0) @binding(1) var tex: texture_2d<f32>;
@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	s, err = NewShader("swapped", swapped)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateTextureSamplerContract(s), ErrBindingContract)

	integer := `
@group(0) @binding(0) var tex: texture_2d<u32>;
@group(0) @binding(1) var samp: sampler;
@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	s, err = NewShader("integer", integer)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateTextureSamplerContract(s), ErrBindingContract)
}

func TestNewShaderRequiresBothStages(t *testing.T) {
	_, err := NewShader("compute", `@compute @workgroup_size(8) fn main() {}`)
	assert.ErrorIs(t, err, ErrMissingEntryPoint)

	_, err = NewShader("vertex only", `@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`)
	assert.ErrorIs(t, err, ErrMissingEntryPoint)
}

func TestNewShaderFromPath(t *testing.T) {
	data, err := builtinFS.ReadFile("wgsl/composite.wgsl")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "composite.wgsl")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := NewShaderFromPath("from-disk", path)
	require.NoError(t, err)
	assert.NoError(t, ValidateTextureSamplerContract(s))

	_, err = NewShaderFromPath("missing", filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.Error(t, err)
}

func TestStripComments(t *testing.T) {
	src := "a /* outer /* inner */ still */ b // tail\nc"
	assert.Equal(t, "a  b \nc\n", stripComments(src))
}
