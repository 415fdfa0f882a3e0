// Command oxy-view opens a window and draws an image as a full-screen textured triangle.
// With -mips the image is uploaded through the mip generator so minified views sample the generated chain.
package main

import (
	"flag"
	"os"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine"
	"github.com/Carmen-Shannon/oxy-mip/engine/config"
	"github.com/Carmen-Shannon/oxy-mip/engine/device"
	"github.com/Carmen-Shannon/oxy-mip/engine/mipmap"
	"github.com/Carmen-Shannon/oxy-mip/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mip/engine/renderer"
	"github.com/Carmen-Shannon/oxy-mip/engine/resource"
	"github.com/Carmen-Shannon/oxy-mip/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	input := flag.String("in", "", "image to display (PNG, JPEG, BMP or WebP); a checkerboard when empty")
	mips := flag.Bool("mips", false, "generate a mip chain for the image before displaying it")
	flag.Parse()

	if err := run(*configPath, *input, *mips); err != nil {
		logrus.WithError(err).Error("oxy-view failed")
		os.Exit(1)
	}
}

func run(configPath, input string, mips bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return err
	}
	log := logrus.WithField("app", "oxy-view")

	var image *common.TextureStagingData
	if input != "" {
		data, err := common.DecodeImage(input)
		if err != nil {
			return err
		}
		image = &data
	}

	w, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
	)
	if err != nil {
		return err
	}

	v := &viewer{cfg: cfg, log: log, image: image, mips: mips}
	eng := engine.NewEngine(w, v.newRenderer,
		engine.WithLogger(log),
		engine.WithProfiling(cfg.Profiler.Enabled),
		engine.WithProfiler(profiler.NewProfiler(
			profiler.WithInterval(cfg.Profiler.Interval.Duration),
			profiler.WithLogger(log),
		)),
	)
	return eng.Run()
}

// viewer owns the GPU objects behind the window's renderer.
type viewer struct {
	cfg   config.Config
	log   *logrus.Entry
	image *common.TextureStagingData
	mips  bool

	dev       device.Device
	resources resource.Builder
	renderer  renderer.Renderer
	chain     *resource.Texture
}

var _ engine.FrameRenderer = &viewer{}

func (v *viewer) newRenderer(w window.Window) (engine.FrameRenderer, error) {
	options := append(v.cfg.DeviceOptions(),
		device.WithSurface(w.SurfaceDescriptor(), w.Width(), w.Height()),
		device.WithLabel("oxy-view"),
		device.WithLogger(v.log),
	)
	dev, err := device.NewDevice(options...)
	if err != nil {
		return nil, err
	}
	v.dev = dev
	v.resources = resource.NewBuilder(dev, resource.WithLogger(v.log))

	rendererOptions := []renderer.RendererBuilderOption{
		renderer.WithClearColor(config.Color(v.cfg.Renderer.ClearColor)),
		renderer.WithAlphaBlend(v.cfg.Renderer.AlphaBlend),
		renderer.WithLogger(v.log),
	}
	if v.image != nil && !v.mips {
		rendererOptions = append(rendererOptions, renderer.WithImage(*v.image))
	}
	if v.mips {
		rendererOptions = append(rendererOptions, renderer.WithSampler(common.SamplerStagingData{
			MipmapFilter: wgpu.MipmapFilterModeLinear,
		}))
	}
	v.renderer, err = renderer.NewRenderer(dev, v.resources, rendererOptions...)
	if err != nil {
		v.Release()
		return nil, err
	}

	if v.image != nil && v.mips {
		if err := v.showMipChain(*v.image); err != nil {
			v.Release()
			return nil, err
		}
	}
	return v, nil
}

// showMipChain generates the configured chain for data and binds it to the renderer.
func (v *viewer) showMipChain(data common.TextureStagingData) error {
	levels, err := v.cfg.Mipmap.LevelCount(data.Width, data.Height)
	if err != nil {
		return err
	}
	gen, err := mipmap.NewGenerator(v.resources,
		mipmap.WithPassClearColor(config.Color(v.cfg.Mipmap.PassClearColor)),
		mipmap.WithGeneratorLogger(v.log),
	)
	if err != nil {
		return err
	}
	defer gen.Release()

	chain, err := gen.Generate(data, levels)
	if err != nil {
		return err
	}
	if err := v.renderer.SetTexture(chain); err != nil {
		chain.Release()
		return err
	}
	v.chain = chain
	return nil
}

func (v *viewer) Resize(width, height int) bool {
	return v.renderer.Resize(width, height)
}

func (v *viewer) RenderFrame() error {
	return v.renderer.RenderFrame()
}

func (v *viewer) Release() {
	if v.renderer != nil {
		v.renderer.Release()
		v.renderer = nil
	}
	if v.chain != nil {
		v.chain.Release()
		v.chain = nil
	}
	if v.resources != nil {
		v.resources.Release()
		v.resources = nil
	}
	if v.dev != nil {
		v.dev.Release()
		v.dev = nil
	}
}
