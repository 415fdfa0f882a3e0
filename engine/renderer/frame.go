package renderer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// errFrameInFlight is returned when a frame is started before the previous one was presented.
var errFrameInFlight = errors.New("previous frame surface not yet presented")

// FrameState is the ephemeral state of one frame: the acquired swapchain texture, its view and the
// command encoder recording into it. It lives for exactly one RenderFrame call.
type FrameState struct {
	SurfaceTexture *wgpu.Texture
	View           *wgpu.TextureView
	Encoder        *wgpu.CommandEncoder
	StartedAt      time.Time
}

// release frees whatever the frame still holds. Safe on a partially built frame.
func (f *FrameState) release() {
	if f.Encoder != nil {
		f.Encoder.Release()
		f.Encoder = nil
	}
	if f.View != nil {
		f.View.Release()
		f.View = nil
	}
	if f.SurfaceTexture != nil {
		f.SurfaceTexture.Release()
		f.SurfaceTexture = nil
	}
}

// classifyAcquireError maps a swapchain acquire failure onto the recoverable per-frame errors.
// Only errors the binding surfaces arrive here; see beginFrame.
// A timeout becomes ErrTimeout; every other status (lost, outdated, out of memory) becomes ErrSurfaceLost.
func classifyAcquireError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrTimeout) || errors.Is(err, common.ErrSurfaceLost) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", common.ErrSurfaceLost, err)
}
