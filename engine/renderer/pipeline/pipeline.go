package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Key identifies a render pipeline. Two pipelines built from the same shader, for the same target format,
// with the same binding layout and the same raster state are interchangeable and are shared.
type Key struct {
	Shader string
	Format wgpu.TextureFormat
	Layout string
	Raster string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.Shader, k.Format, k.Layout, k.Raster)
}

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU pipeline objects alongside the state used to create them.
type pipeline struct {
	key    Key
	shader shader.Shader

	renderPipeline   *wgpu.RenderPipeline
	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout

	// The following properties are used to configure the pipeline during creation and can be set with the builder options.

	blendEnabled bool
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
	vertexCount  uint32
}

// Pipeline defines the interface for a full-screen render pipeline: one shader module with vertex and
// fragment stages, drawn without vertex buffers into a single color target of a fixed format.
type Pipeline interface {
	// Key returns the (shader, format, layout, raster state) identity of this pipeline.
	Key() Key

	// Shader returns the shader the pipeline is built from.
	Shader() shader.Shader

	// TargetFormat returns the format of the single color attachment.
	TargetFormat() wgpu.TextureFormat

	// RenderPipeline returns the GPU pipeline, or nil before SetGPUObjects.
	RenderPipeline() *wgpu.RenderPipeline

	// BindGroupLayout returns the GPU layout created for a bind group index, or nil if it does not exist.
	//
	// Parameters:
	//   - group: the @group index declared in the shader
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout for the group
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// VertexCount returns the number of vertices issued per draw, 3 for a full-screen triangle.
	VertexCount() uint32

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state used when blending is enabled.
	BlendState() *wgpu.BlendState

	// SetGPUObjects stores the GPU objects created for this pipeline. The pipeline takes ownership and frees them on Release.
	//
	// Parameters:
	//   - rp: the WebGPU render pipeline
	//   - layout: the pipeline layout the render pipeline was linked with
	//   - bindGroupLayouts: one bind group layout per group index, in order
	SetGPUObjects(rp *wgpu.RenderPipeline, layout *wgpu.PipelineLayout, bindGroupLayouts []*wgpu.BindGroupLayout)

	// Release frees the GPU objects held by the pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates the CPU-side description of a render pipeline for a shader and target format.
// GPU objects are attached later through SetGPUObjects.
//
// Parameters:
//   - s: the shader with vertex and fragment entry points
//   - format: the color target format
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(s shader.Shader, format wgpu.TextureFormat, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		shader:       s,
		blendEnabled: false,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
		vertexCount:  3,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.key = Key{
		Shader: s.Key(),
		Format: format,
		Layout: LayoutSignature(s.BindGroupLayoutDescriptors()),
		Raster: p.rasterSignature(),
	}
	return p
}

// NewKey derives the key of the pipeline NewPipeline would build from the same arguments.
func NewKey(s shader.Shader, format wgpu.TextureFormat, opts ...PipelineBuilderOption) Key {
	return NewPipeline(s, format, opts...).Key()
}

// rasterSignature renders the state set by builder options. The blend state only counts when blending is on.
func (p *pipeline) rasterSignature() string {
	sig := fmt.Sprintf("cull%d,front%d,mask%d", p.cullMode, p.frontFace, p.writeMask)
	if !p.blendEnabled {
		return sig
	}
	if p.blendState == nil {
		return sig + ",blend"
	}
	c, a := p.blendState.Color, p.blendState.Alpha
	return sig + fmt.Sprintf(",blend(%d,%d,%d;%d,%d,%d)",
		c.SrcFactor, c.DstFactor, c.Operation, a.SrcFactor, a.DstFactor, a.Operation)
}

// LayoutSignature renders bind group layout descriptors into a canonical string so that identical
// layouts compare equal regardless of map iteration order.
//
// Parameters:
//   - descriptors: layout descriptors keyed by group index
//
// Returns:
//   - string: e.g. "g0[b0:tex2/float,b1:sampler/filtering]"
func LayoutSignature(descriptors map[int]wgpu.BindGroupLayoutDescriptor) string {
	groups := make([]int, 0, len(descriptors))
	for g := range descriptors {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	var sb strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&sb, "g%d[", g)
		for i, e := range descriptors[g].Entries {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "b%d:%s", e.Binding, entryKind(e))
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

func entryKind(e wgpu.BindGroupLayoutEntry) string {
	switch {
	case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
		return fmt.Sprintf("buffer/%d", e.Buffer.Type)
	case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		if e.Sampler.Type == wgpu.SamplerBindingTypeFiltering {
			return "sampler/filtering"
		}
		return fmt.Sprintf("sampler/%d", e.Sampler.Type)
	case e.StorageTexture.Access != wgpu.StorageTextureAccessUndefined:
		return fmt.Sprintf("storage%d/%d/%d", e.StorageTexture.ViewDimension, e.StorageTexture.Format, e.StorageTexture.Access)
	default:
		kind := fmt.Sprintf("tex%d", e.Texture.ViewDimension)
		if e.Texture.SampleType == wgpu.TextureSampleTypeFloat {
			return kind + "/float"
		}
		return fmt.Sprintf("%s/%d", kind, e.Texture.SampleType)
	}
}

func (p *pipeline) Key() Key {
	return p.key
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) TargetFormat() wgpu.TextureFormat {
	return p.key.Format
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) VertexCount() uint32 {
	return p.vertexCount
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetGPUObjects(rp *wgpu.RenderPipeline, layout *wgpu.PipelineLayout, bindGroupLayouts []*wgpu.BindGroupLayout) {
	p.renderPipeline = rp
	p.pipelineLayout = layout
	p.bindGroupLayouts = bindGroupLayouts
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
}
