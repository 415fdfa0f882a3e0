// Command oxy-mipgen builds a mip chain for an image on the GPU, reads one level back and writes it as a PNG.
// No window is opened; the device is created without a surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/config"
	"github.com/Carmen-Shannon/oxy-mip/engine/device"
	"github.com/Carmen-Shannon/oxy-mip/engine/mipmap"
	"github.com/Carmen-Shannon/oxy-mip/engine/resource"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	input := flag.String("in", "", "input image (PNG, JPEG, BMP or WebP)")
	output := flag.String("out", "", "write the read back level to this PNG file")
	verify := flag.Bool("verify", false, "compare the read back level against a CPU box filter")
	tolerance := flag.Float64("tolerance", 2, "largest allowed average channel difference for -verify")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: oxy-mipgen -in image.png [-out level.png] [-verify] [-config oxy.toml]")
		os.Exit(2)
	}

	if err := run(*configPath, *input, *output, *verify, float32(*tolerance)); err != nil {
		logrus.WithError(err).Error("oxy-mipgen failed")
		os.Exit(1)
	}
}

func run(configPath, input, output string, verify bool, tolerance float32) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return err
	}
	log := logrus.WithField("app", "oxy-mipgen")

	data, err := common.DecodeImage(input)
	if err != nil {
		return err
	}
	levels, err := cfg.Mipmap.LevelCount(data.Width, data.Height)
	if err != nil {
		return err
	}

	dev, err := device.NewDevice(append(cfg.DeviceOptions(),
		device.WithLabel("oxy-mipgen"),
		device.WithLogger(log),
	)...)
	if err != nil {
		return err
	}
	defer dev.Release()

	resources := resource.NewBuilder(dev, resource.WithLogger(log))
	defer resources.Release()

	gen, err := mipmap.NewGenerator(resources,
		mipmap.WithPassClearColor(config.Color(cfg.Mipmap.PassClearColor)),
		mipmap.WithGeneratorLogger(log),
	)
	if err != nil {
		return err
	}
	defer gen.Release()

	reader := mipmap.NewReader(resources,
		mipmap.WithTimeout(cfg.Mipmap.ReadbackTimeout.Duration),
		mipmap.WithDepadWorkers(cfg.Mipmap.DepadWorkers),
		mipmap.WithReaderLogger(log),
	)
	defer reader.Release()

	started := time.Now()
	chain, err := gen.Generate(data, levels)
	if err != nil {
		return err
	}
	defer chain.Release()

	level := cfg.Mipmap.ReadbackLevel
	var pixels []byte
	switch cfg.Mipmap.Await {
	case config.AwaitCooperative:
		pixels, err = readCooperatively(reader, chain, level)
	default:
		pixels, err = reader.ReadLevel(context.Background(), chain, level)
	}
	if err != nil {
		return err
	}

	width, height := common.MipLevelSize(data.Width, data.Height, level)
	result := common.TextureStagingData{Pixels: pixels, Width: width, Height: height}
	average, err := mipmap.AverageColor(pixels)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"levels":  levels,
		"level":   level,
		"width":   width,
		"height":  height,
		"average": average.String(),
		"elapsed": time.Since(started),
		"await":   cfg.Mipmap.Await,
	}).Info("level read back")

	if verify {
		if err := verifyLevel(data, result, level, tolerance); err != nil {
			return err
		}
		log.WithField("tolerance", tolerance).Info("level matches the CPU reference")
	}

	if output != "" {
		if err := imgio.Save(output, mipmap.StagingImage(result), imgio.PNGEncoder()); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		log.WithField("path", output).Info("level written")
	}
	return nil
}

// readCooperatively polls the pending map once per tick instead of blocking in the device, the way a
// frame loop resolves a readback between frames.
func readCooperatively(reader *mipmap.Reader, chain *resource.Texture, level uint32) ([]byte, error) {
	staging, err := reader.CopyLevel(chain, level)
	if err != nil {
		return nil, err
	}
	pending, err := staging.MapRead()
	if err != nil {
		return nil, err
	}

	deadline := time.NewTimer(reader.Timeout())
	defer deadline.Stop()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	for {
		region, ok, err := pending.TryResolve()
		if err != nil {
			return nil, err
		}
		if ok {
			defer region.Release()
			return region.Bytes()
		}
		select {
		case <-deadline.C:
			pending.Release()
			return nil, fmt.Errorf("%w: level %d after %v", common.ErrReadbackTimeout, level, reader.Timeout())
		case <-tick.C:
		}
	}
}

// verifyLevel compares the average color of a read back level with a box filtered CPU reference.
func verifyLevel(base, got common.TextureStagingData, level uint32, tolerance float32) error {
	ref, err := mipmap.ReferenceLevel(base, level)
	if err != nil {
		return err
	}
	want, err := mipmap.AverageColor(ref.Pixels)
	if err != nil {
		return err
	}
	have, err := mipmap.AverageColor(got.Pixels)
	if err != nil {
		return err
	}
	if delta := have.MaxChannelDelta(want); delta > tolerance {
		return fmt.Errorf("level %d average %s differs from reference %s by %.2f", level, have, want, delta)
	}
	return nil
}
