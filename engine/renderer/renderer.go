package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/device"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-mip/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	log *logrus.Entry

	dev       device.Device
	resources resource.Builder

	pipeline  pipeline.Pipeline
	sampler   *wgpu.Sampler
	texture   *resource.Texture
	ownsImage bool
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup

	frame *FrameState

	// Pre-creation config collected from builder options
	clearColor  wgpu.Color
	alphaBlend  bool
	image       *common.TextureStagingData
	samplerData common.SamplerStagingData
	shader      shader.Shader
}

// Renderer draws one textured full-screen triangle into the device's surface each frame.
//
// A Renderer is not safe for concurrent use; it is driven by the same goroutine that owns the Device.
type Renderer interface {
	// Resize reconfigures the surface for a new size. A size with a zero dimension is ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - bool: true if the surface was reconfigured
	Resize(width, height int) bool

	// Reconfigure reapplies the current surface configuration, recovering a lost or outdated surface.
	Reconfigure()

	// RenderFrame acquires the next swapchain texture, clears it, draws the bound texture, submits and presents.
	// Acquire failures are returned as ErrSurfaceLost or ErrTimeout; both are recoverable by rendering
	// again on the next redraw. A lost surface is reconfigured before returning.
	//
	// Returns:
	//   - error: nil, or a wrapped ErrSurfaceLost / ErrTimeout, or an encoding error
	RenderFrame() error

	// SetImage uploads RGBA pixels into a new texture and draws it from the next frame on.
	//
	// Parameters:
	//   - data: the pixels to display
	//
	// Returns:
	//   - error: error if the texture could not be created or uploaded
	SetImage(data common.TextureStagingData) error

	// SetTexture draws an existing texture, e.g. one with a generated mip chain, from the next frame on.
	// The caller keeps ownership of the texture.
	//
	// Parameters:
	//   - tex: a texture created with texture-binding usage
	//
	// Returns:
	//   - error: ErrUnsupportedUsage if the texture cannot be sampled
	SetTexture(tex *resource.Texture) error

	// ClearColor returns the background the render pass clears to.
	ClearColor() wgpu.Color

	// SetClearColor sets the background the render pass clears to.
	SetClearColor(c wgpu.Color)

	// Device returns the device the renderer draws with.
	Device() device.Device

	// Release frees the renderer's texture, bind group, sampler and any unfinished frame.
	// The Device and resource Builder are not released.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer builds the composite pipeline for the device's surface format and binds the initial image.
//
// Parameters:
//   - dev: a device created with a surface
//   - resources: the resource builder for dev
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: error if the device has no surface or a GPU object could not be created
func NewRenderer(dev device.Device, resources resource.Builder, options ...RendererBuilderOption) (Renderer, error) {
	if !dev.HasSurface() {
		return nil, errors.New("renderer requires a device created with a surface")
	}

	r := &renderer{
		log:        logrus.WithField("component", "renderer"),
		dev:        dev,
		resources:  resources,
		clearColor: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	for _, opt := range options {
		opt(r)
	}

	if r.shader == nil {
		composite, err := shader.Composite()
		if err != nil {
			return nil, err
		}
		r.shader = composite
	}

	var err error
	r.pipeline, err = resources.CreatePipeline(r.shader, dev.SurfaceConfig().Format, r.pipelineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create composite pipeline: %w", err)
	}

	r.sampler, err = resources.CreateSampler(r.samplerData)
	if err != nil {
		return nil, err
	}

	image := checkerboard(8, 8)
	if r.image != nil {
		image = *r.image
	}
	if err := r.SetImage(image); err != nil {
		r.Release()
		return nil, err
	}

	r.log.WithField("format", dev.SurfaceConfig().Format).Info("renderer created")
	return r, nil
}

func (r *renderer) pipelineOptions() []pipeline.PipelineBuilderOption {
	return []pipeline.PipelineBuilderOption{pipeline.WithBlendEnabled(r.alphaBlend)}
}

func (r *renderer) Device() device.Device {
	return r.dev
}

func (r *renderer) Resize(width, height int) bool {
	if !r.dev.Resize(width, height) {
		return false
	}
	r.log.WithFields(logrus.Fields{"width": width, "height": height}).Info("resizing renderer surface")
	return true
}

func (r *renderer) Reconfigure() {
	r.dev.Reconfigure()
}

func (r *renderer) ClearColor() wgpu.Color {
	return r.clearColor
}

func (r *renderer) SetClearColor(c wgpu.Color) {
	r.clearColor = c
}

func (r *renderer) SetImage(data common.TextureStagingData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	tex, err := r.resources.CreateTexture(resource.TextureDescriptor{
		Label:         "Scene Texture",
		Width:         data.Width,
		Height:        data.Height,
		MipLevelCount: 1,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return err
	}
	if err := r.resources.UploadPixels(tex, 0, data); err != nil {
		tex.Release()
		return err
	}
	if err := r.bindTexture(tex); err != nil {
		tex.Release()
		return err
	}
	r.ownsImage = true
	return nil
}

func (r *renderer) SetTexture(tex *resource.Texture) error {
	if !tex.HasUsage(wgpu.TextureUsageTextureBinding) {
		return fmt.Errorf("%w: texture %q cannot be sampled", common.ErrUnsupportedUsage, tex.Label())
	}
	if err := r.bindTexture(tex); err != nil {
		return err
	}
	r.ownsImage = false
	return nil
}

// bindTexture swaps in a new texture with a view over all its levels and a fresh bind group.
func (r *renderer) bindTexture(tex *resource.Texture) error {
	view, err := tex.Handle().CreateView(nil)
	if err != nil {
		return fmt.Errorf("create view of %q: %w", tex.Label(), err)
	}
	bindGroup, err := r.resources.CreateBindGroup(r.pipeline, view, r.sampler)
	if err != nil {
		view.Release()
		return err
	}

	r.releaseBinding()
	r.texture, r.view, r.bindGroup = tex, view, bindGroup
	return nil
}

func (r *renderer) releaseBinding() {
	if r.bindGroup != nil {
		r.bindGroup.Release()
		r.bindGroup = nil
	}
	if r.view != nil {
		r.view.Release()
		r.view = nil
	}
	if r.texture != nil && r.ownsImage {
		r.texture.Release()
	}
	r.texture = nil
}

func (r *renderer) RenderFrame() error {
	frame, err := r.beginFrame()
	if err != nil {
		if errors.Is(err, common.ErrSurfaceLost) {
			r.dev.Reconfigure()
		}
		return err
	}
	r.frame = frame
	defer func() {
		frame.release()
		r.frame = nil
	}()

	frame.Encoder.InsertDebugMarker("Render scene")

	pass := frame.Encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Render Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       frame.View,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: r.clearColor,
			},
		},
	})
	pass.SetPipeline(r.pipeline.RenderPipeline())
	pass.SetBindGroup(0, r.bindGroup, nil)
	pass.Draw(r.pipeline.VertexCount(), 1, 0, 0)
	pass.End()

	commandBuffer, err := frame.Encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish frame encoder: %w", err)
	}
	r.dev.Queue().Submit(commandBuffer)
	commandBuffer.Release()

	r.dev.Surface().Present()
	return nil
}

// beginFrame acquires the swapchain texture and prepares a view and an encoder for it.
func (r *renderer) beginFrame() (*FrameState, error) {
	if r.frame != nil {
		return nil, errFrameInFlight
	}

	frame := &FrameState{StartedAt: time.Now()}

	// GetCurrentTexture only reports validation errors. The acquire status (timeout, outdated, lost) is
	// dropped by the binding and such an acquire returns a texture with a nil handle and no error, so the
	// ErrTimeout and ErrSurfaceLost paths below are only reached through validation failures.
	// TODO: classify the acquire status once the wgpu binding returns WGPUSurfaceTexture.status.
	surfaceTexture, err := r.dev.Surface().GetCurrentTexture()
	if err != nil {
		return nil, classifyAcquireError(err)
	}
	frame.SurfaceTexture = surfaceTexture

	frame.View, err = surfaceTexture.CreateView(nil)
	if err != nil {
		frame.release()
		return nil, err
	}

	frame.Encoder, err = r.dev.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "Render Encoder",
	})
	if err != nil {
		frame.release()
		return nil, err
	}
	return frame, nil
}

func (r *renderer) Release() {
	if r.frame != nil {
		r.frame.release()
		r.frame = nil
	}
	r.releaseBinding()
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}
}

// checkerboard returns an RGBA checkerboard of single texel cells, shown until an image is set.
func checkerboard(width, height uint32) common.TextureStagingData {
	pixels := make([]byte, 0, width*height*common.BytesPerPixelRGBA8)
	for y := range height {
		for x := range width {
			v := byte(0x30)
			if (x+y)%2 == 0 {
				v = 0xD0
			}
			pixels = append(pixels, v, v, v, 0xFF)
		}
	}
	return common.TextureStagingData{Pixels: pixels, Width: width, Height: height}
}
