package resource

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/device"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// Builder creates textures, views, samplers, pipelines and bind groups on a Device from static descriptors.
// Pipelines are cached by (shader, target format, layout) and shared between every caller of the Builder.
type Builder interface {
	// CreateTexture allocates a 2D texture. The usage flags must cover every later use of the texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - *Texture: the allocated texture
	//   - error: ErrInvalidDimensions, ErrInvalidMipCount or ErrUnsupportedUsage for a bad descriptor,
	//     or the device error
	CreateTexture(desc TextureDescriptor) (*Texture, error)

	// UploadPixels writes host RGBA rows into one mip level of a texture. The level must have been created
	// with copy-dst usage and the staging data must match the level size.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - mipLevel: the level to write, usually 0
	//   - data: tightly packed or strided RGBA8 rows
	//
	// Returns:
	//   - error: ErrInvalidDimensions or ErrUnsupportedUsage on a contract violation
	UploadPixels(tex *Texture, mipLevel uint32, data common.TextureStagingData) error

	// CreateView creates a 2D view covering exactly one mip level.
	//
	// Parameters:
	//   - tex: the texture to view
	//   - mipLevel: the level the view addresses
	//
	// Returns:
	//   - *wgpu.TextureView: the view
	//   - error: error if the level does not exist or view creation fails
	CreateView(tex *Texture, mipLevel uint32) (*wgpu.TextureView, error)

	// CreateMipViews creates one single-level view per mip level, index i viewing level i.
	// The views alias the same texture over disjoint level ranges.
	//
	// Parameters:
	//   - tex: the texture to view
	//
	// Returns:
	//   - []*wgpu.TextureView: one view per level
	//   - error: the first view creation error; views created before it are released
	CreateMipViews(tex *Texture) ([]*wgpu.TextureView, error)

	// CreateSampler creates a sampler. Zero fields default to clamp-to-edge addressing, linear
	// filtering, nearest mip selection and no anisotropy.
	CreateSampler(data common.SamplerStagingData) (*wgpu.Sampler, error)

	// CreatePipeline compiles a shader and links its declared binding layout into a render pipeline that
	// draws a full-screen triangle into one color target. A pipeline with the same key is returned
	// from the cache instead of being rebuilt.
	//
	// Parameters:
	//   - s: a shader satisfying the texture + sampler binding contract
	//   - format: the color target format
	//   - opts: raster state options; they are part of the key, so different options build different pipelines
	//
	// Returns:
	//   - pipeline.Pipeline: the shared pipeline
	//   - error: a wrapped shader.ErrBindingContract, or the device error
	CreatePipeline(s shader.Shader, format wgpu.TextureFormat, opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error)

	// CreateBindGroup binds one texture view and one sampler to group 0 of a pipeline.
	// The bind group is immutable; binding a different view requires a new bind group.
	//
	// Parameters:
	//   - p: the pipeline whose group 0 layout is used
	//   - view: the sampled texture view
	//   - sampler: the sampler
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	//   - error: error if an argument is missing or creation fails
	CreateBindGroup(p pipeline.Pipeline, view *wgpu.TextureView, sampler *wgpu.Sampler) (*wgpu.BindGroup, error)

	// Device returns the device the builder creates resources on.
	Device() device.Device

	// Release frees every cached pipeline. Textures, views, samplers and bind groups belong to their callers.
	Release()
}

type builder struct {
	log   *logrus.Entry
	dev   device.Device
	cache *pipeline.Cache
}

var _ Builder = &builder{}

// NewBuilder creates a resource Builder on a device.
//
// Parameters:
//   - dev: the device to create resources on
//   - options: builder options
//
// Returns:
//   - Builder: the resource builder
func NewBuilder(dev device.Device, options ...ResourceBuilderOption) Builder {
	b := &builder{
		log: logrus.WithField("component", "resource"),
		dev: dev,
	}
	for _, option := range options {
		option(b)
	}
	if b.cache == nil {
		b.cache = pipeline.NewCache()
	}
	return b
}

func (b *builder) Device() device.Device {
	return b.dev
}

func (b *builder) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	if err := ValidateTextureDescriptor(desc, b.dev.Limits()); err != nil {
		return nil, err
	}
	desc.MipLevelCount = common.Coalesce(desc.MipLevelCount, 1)

	tex, err := b.dev.Device().CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	b.log.WithFields(logrus.Fields{
		"label":  desc.Label,
		"width":  desc.Width,
		"height": desc.Height,
		"levels": desc.MipLevelCount,
	}).Debug("texture created")
	return &Texture{handle: tex, desc: desc}, nil
}

func (b *builder) UploadPixels(tex *Texture, mipLevel uint32, data common.TextureStagingData) error {
	if !tex.HasUsage(wgpu.TextureUsageCopyDst) {
		return fmt.Errorf("%w: texture %q lacks copy-dst usage", common.ErrUnsupportedUsage, tex.Label())
	}
	if mipLevel >= tex.MipLevelCount() {
		return fmt.Errorf("%w: texture %q has no level %d", common.ErrInvalidMipCount, tex.Label(), mipLevel)
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if w, h := tex.LevelSize(mipLevel); data.Width != w || data.Height != h {
		return fmt.Errorf("%w: level %d of %q is %dx%d, pixels are %dx%d",
			common.ErrInvalidDimensions, mipLevel, tex.Label(), w, h, data.Width, data.Height)
	}
	if !HasFourByteTexels(tex.Format()) {
		return fmt.Errorf("%w: texture %q format %d does not take RGBA8 pixels", common.ErrUnsupportedUsage, tex.Label(), tex.Format())
	}

	b.dev.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.Handle(),
			MipLevel: mipLevel,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Stride(),
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *builder) CreateView(tex *Texture, mipLevel uint32) (*wgpu.TextureView, error) {
	if mipLevel >= tex.MipLevelCount() {
		return nil, fmt.Errorf("%w: texture %q has no level %d", common.ErrInvalidMipCount, tex.Label(), mipLevel)
	}
	view, err := tex.Handle().CreateView(&wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("%s level %d", tex.Label(), mipLevel),
		Format:          tex.Format(),
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    mipLevel,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, fmt.Errorf("create view of %q level %d: %w", tex.Label(), mipLevel, err)
	}
	return view, nil
}

func (b *builder) CreateMipViews(tex *Texture) ([]*wgpu.TextureView, error) {
	views := make([]*wgpu.TextureView, 0, tex.MipLevelCount())
	for level := range tex.MipLevelCount() {
		view, err := b.CreateView(tex, level)
		if err != nil {
			for _, v := range views {
				v.Release()
			}
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (b *builder) CreateSampler(data common.SamplerStagingData) (*wgpu.Sampler, error) {
	samp, err := b.dev.Device().CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Texture Sampler",
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeNearest),
		LodMinClamp:   common.Coalesce(data.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	return samp, nil
}

func (b *builder) CreatePipeline(s shader.Shader, format wgpu.TextureFormat, opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	if err := shader.ValidateTextureSamplerContract(s); err != nil {
		return nil, err
	}
	p := pipeline.NewPipeline(s, format, opts...)
	key := p.Key()
	if cached, ok := b.cache.Get(key); ok {
		return cached, nil
	}

	if err := b.buildPipeline(p); err != nil {
		p.Release()
		return nil, err
	}
	b.cache.Put(p)

	b.log.WithField("key", key.String()).Debug("pipeline created")
	return p, nil
}

// buildPipeline creates the shader module, bind group layouts, pipeline layout and render pipeline for p.
func (b *builder) buildPipeline(p pipeline.Pipeline) error {
	dev := b.dev.Device()
	s := p.Shader()

	module, err := dev.CreateShaderModule(s.Module())
	if err != nil {
		return fmt.Errorf("compile shader %s: %w", s.Key(), err)
	}
	defer module.Release()

	descriptors := s.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	release := func() {
		for _, l := range bindGroupLayouts {
			if l != nil {
				l.Release()
			}
		}
	}
	for g := range bindGroupLayouts {
		desc := descriptors[g]
		desc.Label = fmt.Sprintf("%s group %d", s.Key(), g)
		layout, layoutErr := dev.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			release()
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key().String(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		release()
		return err
	}

	target := wgpu.ColorTargetState{
		Format:    p.TargetFormat(),
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	created, err := dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  s.Key() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: s.VertexEntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: s.FragmentEntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		pipelineLayout.Release()
		release()
		return err
	}

	p.SetGPUObjects(created, pipelineLayout, bindGroupLayouts)
	return nil
}

func (b *builder) CreateBindGroup(p pipeline.Pipeline, view *wgpu.TextureView, sampler *wgpu.Sampler) (*wgpu.BindGroup, error) {
	var errs []error
	if p == nil || p.BindGroupLayout(0) == nil {
		errs = append(errs, errors.New("pipeline has no group 0 layout"))
	}
	if view == nil {
		errs = append(errs, errors.New("texture view is nil"))
	}
	if sampler == nil {
		errs = append(errs, errors.New("sampler is nil"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("create bind group: %w", errors.Join(errs...))
	}

	bindGroup, err := b.dev.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  p.Shader().Key() + " Bind Group",
		Layout: p.BindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding:     shader.TextureBinding,
				TextureView: view,
			},
			{
				Binding: shader.SamplerBinding,
				Sampler: sampler,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	return bindGroup, nil
}

func (b *builder) Release() {
	b.cache.Release()
}
