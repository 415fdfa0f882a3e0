package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtins(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	composite, err := shader.Composite()
	require.NoError(t, err)
	downsample, err := shader.Downsample()
	require.NoError(t, err)
	return composite, downsample
}

func TestKeyIdentity(t *testing.T) {
	composite, downsample := builtins(t)

	a := NewKey(composite, wgpu.TextureFormatBGRA8Unorm)
	b := NewKey(composite, wgpu.TextureFormatBGRA8Unorm)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, NewKey(composite, wgpu.TextureFormatRGBA8Unorm), "format is part of the key")
	assert.NotEqual(t, a, NewKey(downsample, wgpu.TextureFormatBGRA8Unorm), "shader is part of the key")

	// both built-ins share one binding layout
	assert.Equal(t, a.Layout, NewKey(downsample, wgpu.TextureFormatBGRA8Unorm).Layout)
	assert.Equal(t, "g0[b0:tex2/float,b1:sampler/filtering]", a.Layout)
}

func TestLayoutSignatureIsOrderIndependent(t *testing.T) {
	entries := map[int]wgpu.BindGroupLayoutDescriptor{
		1: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}}}},
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}}}},
	}
	first := LayoutSignature(entries)
	for range 10 {
		assert.Equal(t, first, LayoutSignature(entries))
	}
	assert.Contains(t, first, "g0[b0:sampler/filtering]g1[")
	assert.Equal(t, "", LayoutSignature(nil))
}

func TestNewPipelineDefaults(t *testing.T) {
	composite, _ := builtins(t)
	p := NewPipeline(composite, wgpu.TextureFormatRGBA8Unorm)

	assert.Equal(t, composite, p.Shader())
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, p.TargetFormat())
	assert.Equal(t, uint32(3), p.VertexCount())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.ColorWriteMaskAll, p.WriteMask())
	assert.False(t, p.BlendEnabled())
	assert.Nil(t, p.RenderPipeline())
	assert.Nil(t, p.BindGroupLayout(0))

	custom := NewPipeline(composite, wgpu.TextureFormatRGBA8Unorm,
		WithBlendEnabled(true),
		WithCullMode(wgpu.CullModeBack),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
	)
	assert.True(t, custom.BlendEnabled())
	assert.Equal(t, wgpu.CullModeBack, custom.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, custom.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskRed, custom.WriteMask())
	assert.NotEqual(t, p.Key(), custom.Key(), "raster state is part of the identity")
	assert.Equal(t, p.Key(), NewKey(composite, wgpu.TextureFormatRGBA8Unorm))
	assert.Equal(t, custom.Key(), NewKey(composite, wgpu.TextureFormatRGBA8Unorm,
		WithBlendEnabled(true),
		WithCullMode(wgpu.CullModeBack),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
	))
}

func TestRasterStateKeys(t *testing.T) {
	composite, _ := builtins(t)
	format := wgpu.TextureFormatRGBA8Unorm
	base := NewKey(composite, format)

	tests := []struct {
		name string
		opts []PipelineBuilderOption
		same bool
	}{
		{name: "explicit defaults", opts: []PipelineBuilderOption{WithBlendEnabled(false), WithWriteMask(wgpu.ColorWriteMaskAll)}, same: true},
		{name: "blend state without blending", opts: []PipelineBuilderOption{WithBlendState(&wgpu.BlendState{})}, same: true},
		{name: "blending", opts: []PipelineBuilderOption{WithBlendEnabled(true)}},
		{name: "write mask", opts: []PipelineBuilderOption{WithWriteMask(wgpu.ColorWriteMaskRed)}},
		{name: "cull mode", opts: []PipelineBuilderOption{WithCullMode(wgpu.CullModeFront)}},
		{name: "front face", opts: []PipelineBuilderOption{WithFrontFace(wgpu.FrontFaceCW)}},
		{name: "blend equation", opts: []PipelineBuilderOption{WithBlendEnabled(true), WithBlendState(&wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewKey(composite, format, tt.opts...)
			if tt.same {
				assert.Equal(t, base, key)
			} else {
				assert.NotEqual(t, base, key)
			}
		})
	}

	assert.NotEqual(t,
		NewKey(composite, format, WithBlendEnabled(true)),
		NewKey(composite, format, WithBlendEnabled(true), WithBlendState(&wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		})),
		"a different blend equation builds a different pipeline")
}

func TestCache(t *testing.T) {
	composite, downsample := builtins(t)
	c := NewCache()

	p := NewPipeline(composite, wgpu.TextureFormatBGRA8Unorm)
	c.Put(p)
	c.Put(NewPipeline(downsample, wgpu.TextureFormatRGBA8Unorm))
	assert.Equal(t, 2, c.Len())

	got, ok := c.Get(NewKey(composite, wgpu.TextureFormatBGRA8Unorm))
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = c.Get(NewKey(composite, wgpu.TextureFormatRGBA8Unorm))
	assert.False(t, ok)

	blended := NewPipeline(composite, wgpu.TextureFormatBGRA8Unorm, WithBlendEnabled(true), WithWriteMask(wgpu.ColorWriteMaskRed))
	_, ok = c.Get(blended.Key())
	assert.False(t, ok, "a plain pipeline must not satisfy a blended lookup")
	c.Put(blended)
	assert.Equal(t, 3, c.Len())
	got, ok = c.Get(NewKey(composite, wgpu.TextureFormatBGRA8Unorm, WithBlendEnabled(true), WithWriteMask(wgpu.ColorWriteMaskRed)))
	require.True(t, ok)
	assert.True(t, got.BlendEnabled())
	assert.Equal(t, wgpu.ColorWriteMaskRed, got.WriteMask())

	c.Release()
	assert.Equal(t, 0, c.Len())
}
