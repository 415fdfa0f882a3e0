package mipmap

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-mip/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// Generator builds textures with a full mip chain by rendering each level from the one above it.
type Generator interface {
	// Generate allocates a texture with the requested number of levels, uploads data into level 0 and
	// renders every coarser level. The passes are submitted before Generate returns, so a copy
	// submitted afterwards observes the finished chain.
	//
	// Parameters:
	//   - data: the level 0 pixels
	//   - levels: the mip level count, 1..floor(log2(max(w, h)))+1
	//
	// Returns:
	//   - *resource.Texture: the texture, owned by the caller
	//   - error: ErrInvalidMipCount, ErrInvalidDimensions, or the failing step's error; no texture is returned on error
	Generate(data common.TextureStagingData, levels uint32) (*resource.Texture, error)

	// Regenerate renders levels 1..N-1 of an existing texture from its current level 0.
	// The texture keeps its allocation; only the contents of the coarser levels change.
	//
	// Parameters:
	//   - tex: a texture created with render-target and sampled usage in the generator's format
	//
	// Returns:
	//   - error: ErrUnsupportedUsage if the texture cannot be rendered into or sampled
	Regenerate(tex *resource.Texture) error

	// Format returns the texture format the generator renders.
	Format() wgpu.TextureFormat

	// Release frees the generator's sampler. The shared pipeline stays in the resource builder's cache.
	Release()
}

type generator struct {
	log        *logrus.Entry
	resources  resource.Builder
	format     wgpu.TextureFormat
	clearColor wgpu.Color
	shader     shader.Shader
	pipeline   pipeline.Pipeline
	sampler    *wgpu.Sampler
}

var _ Generator = &generator{}

// NewGenerator creates the downsample pipeline and sampler used for every pass.
//
// Parameters:
//   - resources: the resource builder of the device to render on
//   - options: variadic list of GeneratorBuilderOption functions to configure the Generator
//
// Returns:
//   - Generator: the generator
//   - error: error if the pipeline or sampler could not be created
func NewGenerator(resources resource.Builder, options ...GeneratorBuilderOption) (Generator, error) {
	g := &generator{
		log:        logrus.WithField("component", "mipmap"),
		resources:  resources,
		format:     wgpu.TextureFormatRGBA8Unorm,
		clearColor: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
	}
	for _, opt := range options {
		opt(g)
	}
	if !resource.HasFourByteTexels(g.format) {
		return nil, fmt.Errorf("%w: mip chains need four 8-bit channels, got format %d", common.ErrUnsupportedUsage, g.format)
	}

	if g.shader == nil {
		downsample, err := shader.Downsample()
		if err != nil {
			return nil, err
		}
		g.shader = downsample
	}

	var err error
	g.pipeline, err = resources.CreatePipeline(g.shader, g.format)
	if err != nil {
		return nil, fmt.Errorf("create downsample pipeline: %w", err)
	}
	g.sampler, err = resources.CreateSampler(common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *generator) Format() wgpu.TextureFormat {
	return g.format
}

func (g *generator) Generate(data common.TextureStagingData, levels uint32) (*resource.Texture, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if err := common.ValidateMipCount(data.Width, data.Height, levels); err != nil {
		return nil, err
	}

	tex, err := g.resources.CreateTexture(resource.TextureDescriptor{
		Label:         "Mip Chain",
		Width:         data.Width,
		Height:        data.Height,
		MipLevelCount: levels,
		Format:        g.format,
		Usage:         resource.MipChainUsage(g.format),
	})
	if err != nil {
		return nil, err
	}
	if err := g.resources.UploadPixels(tex, 0, data); err != nil {
		tex.Release()
		return nil, err
	}
	if err := g.Regenerate(tex); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

func (g *generator) Regenerate(tex *resource.Texture) error {
	if err := checkRenderable(tex, g.format); err != nil {
		return err
	}
	if tex.MipLevelCount() == 1 {
		g.log.Debug("single level texture, no passes to record")
		return nil
	}

	views, err := g.resources.CreateMipViews(tex)
	if err != nil {
		return err
	}
	defer func() {
		for _, v := range views {
			v.Release()
		}
	}()

	dev := g.resources.Device()
	encoder, err := dev.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "Mip Encoder",
	})
	if err != nil {
		return fmt.Errorf("create mip encoder: %w", err)
	}
	defer encoder.Release()

	// bind groups must outlive the submission that uses them
	bindGroups := make([]*wgpu.BindGroup, 0, len(views)-1)
	defer func() {
		for _, bg := range bindGroups {
			bg.Release()
		}
	}()

	for target := 1; target < len(views); target++ {
		bindGroup, err := g.resources.CreateBindGroup(g.pipeline, views[target-1], g.sampler)
		if err != nil {
			return fmt.Errorf("mip level %d: %w", target, err)
		}
		bindGroups = append(bindGroups, bindGroup)

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: fmt.Sprintf("Mip Pass %d", target),
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       views[target],
					LoadOp:     wgpu.LoadOpClear,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: g.clearColor,
				},
			},
		})
		pass.SetPipeline(g.pipeline.RenderPipeline())
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Draw(g.pipeline.VertexCount(), 1, 0, 0)
		pass.End()

		w, h := tex.LevelSize(uint32(target))
		g.log.WithFields(logrus.Fields{"level": target, "width": w, "height": h}).Debug("mip pass recorded")
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish mip encoder: %w", err)
	}
	dev.Queue().Submit(commandBuffer)
	commandBuffer.Release()

	g.log.WithFields(logrus.Fields{
		"texture": tex.Label(),
		"levels":  tex.MipLevelCount(),
	}).Info("mip chain generated")
	return nil
}

// checkRenderable verifies a texture can be both sampled and rendered into by the downsample passes.
func checkRenderable(tex *resource.Texture, format wgpu.TextureFormat) error {
	if tex == nil || tex.Handle() == nil {
		return fmt.Errorf("%w: texture is nil or released", common.ErrUnsupportedUsage)
	}
	if !tex.HasUsage(wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment) {
		return fmt.Errorf("%w: texture %q needs sampled and render-target usage for mip generation",
			common.ErrUnsupportedUsage, tex.Label())
	}
	if tex.Format() != format {
		return fmt.Errorf("%w: texture %q is %v, generator renders %v", common.ErrUnsupportedUsage, tex.Label(), tex.Format(), format)
	}
	return nil
}

func (g *generator) Release() {
	if g.sampler != nil {
		g.sampler.Release()
		g.sampler = nil
	}
}
