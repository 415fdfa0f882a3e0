package mipmap

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

const (
	defaultReadbackTimeout = 5 * time.Second
	defaultPollInterval    = time.Millisecond

	// rows below this count are de-padded on the calling goroutine
	parallelDepadRows = 256

	maxDepadWorkers = 8
)

var (
	depadPoolOnce sync.Once
	depadPool     worker.DynamicWorkerPool
)

// sharedDepadPool returns the process-wide de-padding pool, starting it on first use.
// Every Reader submits to this one pool, so its maxDepadWorkers goroutines are the only ones readers start.
// The pool is never stopped: worker.Stop signals through a channel shared by all workers and cannot end
// a specific one.
func sharedDepadPool() worker.DynamicWorkerPool {
	depadPoolOnce.Do(func() {
		depadPool = worker.NewDynamicWorkerPool(maxDepadWorkers, 64, time.Second)
	})
	return depadPool
}

// mappable is the part of a host-visible buffer the readback protocol drives.
type mappable interface {
	MapRead(size uint64, callback func(wgpu.BufferMapAsyncStatus)) error
	MappedRange(size uint64) []byte
	Unmap()
	Release()
}

// poller drives device callbacks; device.Device satisfies it.
type poller interface {
	Poll(wait bool)
}

// gpuBuffer adapts a wgpu.Buffer to mappable.
type gpuBuffer struct {
	buf *wgpu.Buffer
}

func (g gpuBuffer) MapRead(size uint64, callback func(wgpu.BufferMapAsyncStatus)) error {
	return g.buf.MapAsync(wgpu.MapModeRead, 0, size, callback)
}

func (g gpuBuffer) MappedRange(size uint64) []byte {
	return g.buf.GetMappedRange(0, uint(size))
}

func (g gpuBuffer) Unmap() {
	g.buf.Unmap()
}

func (g gpuBuffer) Release() {
	g.buf.Release()
}

// Reader copies mip levels of textures into host memory.
//
// A readback moves through three handles, each invalidated when the next is produced:
// StagingBuffer (copy submitted, not yet mapped) → PendingMap (map requested, no data access)
// → MappedRegion (data readable until Release unmaps it).
type Reader struct {
	log          *logrus.Entry
	resources    resource.Builder
	timeout      time.Duration
	pollInterval time.Duration
	workers      int
	released     bool
}

// NewReader creates a Reader on the device of a resource builder.
//
// Parameters:
//   - resources: the resource builder whose device performs the copies
//   - options: variadic list of ReaderBuilderOption functions to configure the Reader
//
// Returns:
//   - *Reader: the reader
func NewReader(resources resource.Builder, options ...ReaderBuilderOption) *Reader {
	r := &Reader{
		log:          logrus.WithField("component", "mipmap"),
		resources:    resources,
		timeout:      defaultReadbackTimeout,
		pollInterval: defaultPollInterval,
		workers:      min(runtime.NumCPU(), maxDepadWorkers),
	}
	for _, opt := range options {
		opt(r)
	}
	r.workers = min(r.workers, maxDepadWorkers)
	return r
}

// Release detaches the reader from the shared de-padding pool. Reads after Release still work and
// de-pad on the calling goroutine. Safe to call more than once.
func (r *Reader) Release() {
	r.released = true
}

// pool returns the pool large readbacks are de-padded on, or nil when they are de-padded serially.
func (r *Reader) pool() worker.DynamicWorkerPool {
	if r.released || r.workers <= 1 {
		return nil
	}
	return sharedDepadPool()
}

// Timeout returns the longest time Await waits for one map.
func (r *Reader) Timeout() time.Duration {
	return r.timeout
}

// ReadLevel copies one mip level into host memory and returns its tightly packed RGBA rows,
// width * height * 4 bytes for the level's dimensions. It blocks until the map completes
// or the reader's timeout elapses.
//
// Parameters:
//   - ctx: cancels the wait
//   - tex: a texture created with copy-src usage
//   - level: the mip level to read
//
// Returns:
//   - []byte: the level's pixels
//   - error: ErrInvalidMipCount, ErrUnsupportedUsage, ErrReadbackTimeout or the device error; no partial data
func (r *Reader) ReadLevel(ctx context.Context, tex *resource.Texture, level uint32) ([]byte, error) {
	staging, err := r.CopyLevel(tex, level)
	if err != nil {
		return nil, err
	}
	pending, err := staging.MapRead()
	if err != nil {
		return nil, err
	}
	region, err := pending.Await(ctx)
	if err != nil {
		return nil, err
	}
	defer region.Release()
	return region.Bytes()
}

// CopyLevel records and submits a copy of one mip level into a new staging buffer.
// Rows are written at the device's copy row alignment; the staging buffer's dims describe the layout.
//
// Parameters:
//   - tex: a texture created with copy-src usage
//   - level: the mip level to copy
//
// Returns:
//   - *StagingBuffer: the staging buffer holding the submitted copy
//   - error: ErrInvalidMipCount, ErrUnsupportedUsage (including formats without four-byte texels) or the device error
func (r *Reader) CopyLevel(tex *resource.Texture, level uint32) (*StagingBuffer, error) {
	if tex == nil || tex.Handle() == nil {
		return nil, fmt.Errorf("%w: texture is nil or released", common.ErrUnsupportedUsage)
	}
	if !tex.HasUsage(wgpu.TextureUsageCopySrc) {
		return nil, fmt.Errorf("%w: texture %q lacks copy-src usage", common.ErrUnsupportedUsage, tex.Label())
	}
	if !resource.HasFourByteTexels(tex.Format()) {
		return nil, fmt.Errorf("%w: texture %q format %d does not have four-byte texels", common.ErrUnsupportedUsage, tex.Label(), tex.Format())
	}
	if level >= tex.MipLevelCount() {
		return nil, fmt.Errorf("%w: texture %q has no level %d", common.ErrInvalidMipCount, tex.Label(), level)
	}

	width, height := tex.LevelSize(level)
	dims := common.NewTextureBufferDims(width, height)
	dev := r.resources.Device()

	buf, err := dev.Device().CreateBuffer(&wgpu.BufferDescriptor{
		Label:            fmt.Sprintf("Readback Level %d", level),
		Size:             dims.CopySize(),
		Usage:            wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}

	encoder, err := dev.Device().CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "Readback Encoder",
	})
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("create readback encoder: %w", err)
	}
	defer encoder.Release()

	// copies address the texture level directly, not through a view
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex.Handle(),
			MipLevel: level,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  dims.PaddedRowSize,
				RowsPerImage: height,
			},
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("finish readback encoder: %w", err)
	}
	dev.Queue().Submit(commandBuffer)
	commandBuffer.Release()

	r.log.WithFields(logrus.Fields{
		"level":         level,
		"width":         width,
		"height":        height,
		"bytes_per_row": dims.PaddedRowSize,
	}).Debug("readback copy submitted")

	return r.newStagingBuffer(gpuBuffer{buf: buf}, dev, dims, level), nil
}

func (r *Reader) newStagingBuffer(buf mappable, p poller, dims common.TextureBufferDims, level uint32) *StagingBuffer {
	return &StagingBuffer{reader: r, buf: buf, poller: p, dims: dims, level: level}
}

// depad writes the tightly packed rows of padded into dst, splitting large regions across the worker pool.
func (r *Reader) depad(dst, padded []byte, dims common.TextureBufferDims) {
	if dims.HasNoPadding() {
		copy(dst, padded[:dims.UnpaddedSize()])
		return
	}
	if dims.Height < parallelDepadRows {
		dims.DepadRows(dst, padded, 0, dims.Height)
		return
	}
	pool := r.pool()
	if pool == nil {
		dims.DepadRows(dst, padded, 0, dims.Height)
		return
	}

	chunk := (dims.Height + uint32(r.workers) - 1) / uint32(r.workers)
	var wg sync.WaitGroup
	id := 0
	for from := uint32(0); from < dims.Height; from += chunk {
		to := min(from+chunk, dims.Height)
		wg.Add(1)
		start := from
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				dims.DepadRows(dst, padded, start, to)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}

// StagingBuffer is a host-visible buffer whose copy has been submitted but not mapped.
// Its only operation is MapRead, which hands the buffer over to a PendingMap.
type StagingBuffer struct {
	reader *Reader
	buf    mappable
	poller poller
	dims   common.TextureBufferDims
	level  uint32
}

// Dims returns the layout of the copied rows in the buffer.
func (s *StagingBuffer) Dims() common.TextureBufferDims {
	return s.dims
}

// MapRead requests an asynchronous read mapping. The staging buffer is consumed: its buffer moves into the
// returned PendingMap and a second call fails. Mapping is only requested after the copy was submitted,
// so the mapped range never shows stale memory.
//
// Returns:
//   - *PendingMap: the pending map
//   - error: ErrUseAfterUnmap if already consumed, or the map request error
func (s *StagingBuffer) MapRead() (*PendingMap, error) {
	if s.buf == nil {
		return nil, fmt.Errorf("%w: staging buffer for level %d was already mapped", common.ErrUseAfterUnmap, s.level)
	}
	buf := s.buf
	s.buf = nil

	p := &PendingMap{
		reader: s.reader,
		buf:    buf,
		poller: s.poller,
		dims:   s.dims,
		level:  s.level,
		done:   make(chan struct{}),
	}
	if err := buf.MapRead(s.dims.CopySize(), p.complete); err != nil {
		buf.Release()
		return nil, fmt.Errorf("map staging buffer for level %d: %w", s.level, err)
	}
	return p, nil
}

// PendingMap is a requested map that has not been observed complete. It exposes no data and cannot unmap.
//
// Two ways to wait are offered: Await polls the device until the map completes or times out, for offline
// tools that own their thread; Done and TryResolve let an event loop check once per iteration without blocking.
type PendingMap struct {
	reader *Reader
	buf    mappable
	poller poller
	dims   common.TextureBufferDims
	level  uint32

	once   sync.Once
	done   chan struct{}
	status wgpu.BufferMapAsyncStatus
}

// complete is the map callback. It may run on any goroutine and fires at most once.
func (p *PendingMap) complete(status wgpu.BufferMapAsyncStatus) {
	p.once.Do(func() {
		p.status = status
		close(p.done)
	})
}

// Done returns a channel closed once the map callback has fired. The callback only fires while the
// device is polled, so an event loop must keep calling TryResolve (or poll the device itself).
func (p *PendingMap) Done() <-chan struct{} {
	return p.done
}

// TryResolve polls the device once without blocking.
//
// Returns:
//   - *MappedRegion: the mapped region once the map completed successfully
//   - bool: true once the map completed, successfully or not
//   - error: the map failure, or ErrUseAfterUnmap if the pending map was already resolved or released
func (p *PendingMap) TryResolve() (*MappedRegion, bool, error) {
	if p.buf == nil {
		return nil, true, p.consumedError()
	}
	p.poller.Poll(false)
	select {
	case <-p.done:
		region, err := p.resolve()
		return region, true, err
	default:
		return nil, false, nil
	}
}

// Await blocks until the map completes. It issues one blocking device poll and then polls without
// blocking at the reader's poll interval until the callback fires or the reader's timeout elapses.
// On timeout or cancellation the buffer is released and no data is returned.
//
// Parameters:
//   - ctx: cancels the wait
//
// Returns:
//   - *MappedRegion: the mapped region
//   - error: ErrReadbackTimeout, the context error, the map failure, or ErrUseAfterUnmap if already resolved
func (p *PendingMap) Await(ctx context.Context) (*MappedRegion, error) {
	if p.buf == nil {
		return nil, p.consumedError()
	}

	ctx, cancel := context.WithTimeout(ctx, p.reader.timeout)
	defer cancel()

	p.poller.Poll(true)

	ticker := time.NewTicker(p.reader.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return p.resolve()
		case <-ctx.Done():
			p.Release()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: level %d not mapped within %v", common.ErrReadbackTimeout, p.level, p.reader.timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
			p.poller.Poll(false)
		}
	}
}

// Release abandons the map and frees the buffer without reading it.
func (p *PendingMap) Release() {
	if p.buf == nil {
		return
	}
	p.buf.Release()
	p.buf = nil
}

func (p *PendingMap) consumedError() error {
	return fmt.Errorf("%w: pending map for level %d was already resolved or released", common.ErrUseAfterUnmap, p.level)
}

// resolve hands the buffer to a MappedRegion. Must only run after done is closed.
func (p *PendingMap) resolve() (*MappedRegion, error) {
	buf := p.buf
	p.buf = nil
	if p.status != wgpu.BufferMapAsyncStatusSuccess {
		buf.Release()
		return nil, fmt.Errorf("map staging buffer for level %d: status %v", p.level, p.status)
	}

	p.reader.log.WithField("level", p.level).Debug("readback mapped")
	return &MappedRegion{
		reader: p.reader,
		buf:    buf,
		dims:   p.dims,
		level:  p.level,
		data:   buf.MappedRange(p.dims.CopySize()),
	}, nil
}

// MappedRegion is a mapped staging buffer. Its bytes are readable until Release unmaps the buffer;
// every access after that fails with ErrUseAfterUnmap.
type MappedRegion struct {
	reader *Reader
	buf    mappable
	dims   common.TextureBufferDims
	level  uint32
	data   []byte
}

// Dims returns the layout of the rows in the mapped range.
func (m *MappedRegion) Dims() common.TextureBufferDims {
	return m.dims
}

// Level returns the mip level the region holds.
func (m *MappedRegion) Level() uint32 {
	return m.level
}

// Read calls fn with the padded mapped range. The slice must not be retained after fn returns.
//
// Parameters:
//   - fn: receives the mapped bytes, rows PaddedRowSize apart
//
// Returns:
//   - error: ErrUseAfterUnmap once the region was released
func (m *MappedRegion) Read(fn func(mapped []byte)) error {
	if m.buf == nil {
		return fmt.Errorf("%w: level %d", common.ErrUseAfterUnmap, m.level)
	}
	fn(m.data)
	return nil
}

// Bytes copies the region out as tightly packed rows of the level's requested width.
//
// Returns:
//   - []byte: width * height * 4 bytes
//   - error: ErrUseAfterUnmap once the region was released
func (m *MappedRegion) Bytes() ([]byte, error) {
	out := make([]byte, m.dims.UnpaddedSize())
	err := m.Read(func(mapped []byte) {
		m.reader.depad(out, mapped, m.dims)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release unmaps and frees the staging buffer. Safe to call more than once.
func (m *MappedRegion) Release() {
	if m.buf == nil {
		return
	}
	m.data = nil
	m.buf.Unmap()
	m.buf.Release()
	m.buf = nil
}
