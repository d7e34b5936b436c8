package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/prism2d/prism/common"
)

// WGPUBackend is the GPU-backed DeviceBackend. It exposes the surface
// management hooks the windowing layer needs on top of the plain
// DeviceBackend contract.
type WGPUBackend interface {
	DeviceBackend

	// ConfigureSurface (re)configures the swapchain and the depth/stencil
	// attachment for the given surface size in pixels. Must be called once
	// before the first frame and again whenever the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetClearColor sets the color the render pass clears to at the start
	// of each frame.
	//
	// Parameters:
	//   - color: the clear color
	SetClearColor(color common.Color4f)
}

// programResources holds the reflected layout and GPU objects created at
// link time for one program. Render pipelines are permutations of the same
// linked program under different draw state, cached by state key.
type programResources struct {
	vertexKey        string
	fragmentKey      string
	slots            []bindingSlot
	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout
	pipelines        map[string]*wgpu.RenderPipeline
}

// geometryBuffer is the GPU-side vertex buffer for one geometry, tagged
// with the geometry version it was uploaded from.
type geometryBuffer struct {
	buffer      *wgpu.Buffer
	capacity    int
	version     uint64
	vertexCount int
}

// textureResources is the GPU-side texture and view for one texture key.
type textureResources struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type releasable interface {
	Release()
}

type wgpuDeviceBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	depthStencilView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor
	width, height        int
	clearColor           common.Color4f
	presentMode          wgpu.PresentMode

	shaderModules map[string]*wgpu.ShaderModule
	programs      map[string]*programResources
	geometries    map[string]*geometryBuffer
	textures      map[string]*textureResources
	samplers      map[string]*wgpu.Sampler
	whiteTexture  *textureResources

	// Frame state for batched rendering across multiple draw calls
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Transient per-draw GPU objects released once the frame is submitted
	frameGarbage []releasable
}

var _ WGPUBackend = &wgpuDeviceBackendImpl{}

type wgpuBackendOptions struct {
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	clearColor           common.Color4f
}

// WGPUBackendOption configures NewWGPUBackend.
type WGPUBackendOption func(*wgpuBackendOptions)

// WithForceFallbackAdapter forces the software rasterizer adapter, useful
// on machines without a usable GPU.
func WithForceFallbackAdapter() WGPUBackendOption {
	return func(o *wgpuBackendOptions) {
		o.forceFallbackAdapter = true
	}
}

// WithVSync switches the surface to FIFO presentation.
func WithVSync() WGPUBackendOption {
	return func(o *wgpuBackendOptions) {
		o.presentMode = wgpu.PresentModeFifo
	}
}

// WithClearColor sets the initial render pass clear color.
//
// Parameters:
//   - color: the clear color
func WithClearColor(color common.Color4f) WGPUBackendOption {
	return func(o *wgpuBackendOptions) {
		o.clearColor = color
	}
}

// NewWGPUBackend creates the GPU-backed DeviceBackend for the given surface.
// It requests an adapter and device synchronously and panics when no usable
// GPU is available; callers that need a GPU-less device should use the
// headless backend instead.
//
// Parameters:
//   - surfaceDescriptor: the platform surface to present to
//   - options: optional configuration
//
// Returns:
//   - WGPUBackend: the backend, ready for ConfigureSurface
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendOption) WGPUBackend {
	runtime.LockOSThread()

	opts := &wgpuBackendOptions{
		presentMode: wgpu.PresentModeImmediate,
		clearColor:  common.Color4f{R: 0, G: 0, B: 0, A: 1},
	}
	for _, opt := range options {
		opt(opts)
	}

	b := &wgpuDeviceBackendImpl{
		mu:            &sync.Mutex{},
		instance:      wgpu.CreateInstance(nil),
		presentMode:   opts.presentMode,
		clearColor:    opts.clearColor,
		shaderModules: make(map[string]*wgpu.ShaderModule),
		programs:      make(map[string]*programResources),
		geometries:    make(map[string]*geometryBuffer),
		textures:      make(map[string]*textureResources),
		samplers:      make(map[string]*wgpu.Sampler),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Graphics Device",
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return b
}

func (b *wgpuDeviceBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width = width
	b.height = height

	// The stencil aspect backs the mask rendering passes, so the
	// depth/stencil attachment is always Depth24PlusStencil8.
	depthStencilTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Stencil Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24PlusStencil8,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthStencilView, err = depthStencilTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    nil, // set per-frame to the swapchain view
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(b.clearColor.R),
					G: float64(b.clearColor.G),
					B: float64(b.clearColor.B),
					A: float64(b.clearColor.A),
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:              b.depthStencilView,
			DepthLoadOp:       wgpu.LoadOpClear,
			DepthStoreOp:      wgpu.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     wgpu.LoadOpClear,
			StencilStoreOp:    wgpu.StoreOpDiscard,
			StencilClearValue: 0,
		},
	}

	// Draw-state permutations bake the surface format in, so they do not
	// survive a reconfigure.
	for _, pr := range b.programs {
		for _, pipe := range pr.pipelines {
			pipe.Release()
		}
		pr.pipelines = make(map[string]*wgpu.RenderPipeline)
	}
}

func (b *wgpuDeviceBackendImpl) SetClearColor(color common.Color4f) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearColor = color
	if b.renderPassDescriptor != nil {
		b.renderPassDescriptor.ColorAttachments[0].ClearValue = wgpu.Color{
			R: float64(color.R),
			G: float64(color.G),
			B: float64(color.B),
			A: float64(color.A),
		}
	}
}

func (b *wgpuDeviceBackendImpl) CompileShader(s Shader) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return err
	}

	if old, ok := b.shaderModules[s.Key()]; ok {
		old.Release()
	}
	b.shaderModules[s.Key()] = module
	return nil
}

func (b *wgpuDeviceBackendImpl) LinkProgram(p Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vs := p.VertexShader()
	fs := p.FragmentShader()
	if vs == nil || fs == nil {
		return errors.New("both vertex and fragment shaders must be set to link a program")
	}
	if _, ok := b.shaderModules[vs.Key()]; !ok {
		return fmt.Errorf("vertex shader %q has no compiled module", vs.Key())
	}
	if _, ok := b.shaderModules[fs.Key()]; !ok {
		return fmt.Errorf("fragment shader %q has no compiled module", fs.Key())
	}

	combined := vs.Source() + "\n" + fs.Source()
	slots, err := reflectShader(combined)
	if err != nil {
		return err
	}

	// vertex and fragment shaders declare their bindings in separate
	// groups, one bind group layout per group index.
	groupCount := 0
	for _, slot := range slots {
		if slot.group+1 > groupCount {
			groupCount = slot.group + 1
		}
	}
	groupEntries := make([][]wgpu.BindGroupLayoutEntry, groupCount)
	for _, slot := range slots {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(slot.binding),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		switch slot.kind {
		case bindingUniform:
			entry.Buffer = wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64(slot.layout.size),
			}
		case bindingTexture:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case bindingSampler:
			entry.Sampler = wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			}
		}
		groupEntries[slot.group] = append(groupEntries[slot.group], entry)
	}

	layouts := make([]*wgpu.BindGroupLayout, groupCount)
	for i, entries := range groupEntries {
		bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d", p.Key(), i),
			Entries: entries,
		})
		if err != nil {
			for _, created := range layouts[:i] {
				created.Release()
			}
			return err
		}
		layouts[i] = bgl
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		for _, bgl := range layouts {
			bgl.Release()
		}
		return err
	}

	if old, ok := b.programs[p.Key()]; ok {
		b.releaseProgramLocked(old)
	}
	b.programs[p.Key()] = &programResources{
		vertexKey:        vs.Key(),
		fragmentKey:      fs.Key(),
		slots:            slots,
		bindGroupLayouts: layouts,
		pipelineLayout:   pipelineLayout,
		pipelines:        make(map[string]*wgpu.RenderPipeline),
	}
	return nil
}

func (b *wgpuDeviceBackendImpl) UploadTexture(t Texture, bitmap common.Bitmap) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bitmap.Width <= 0 || bitmap.Height <= 0 {
		return fmt.Errorf("texture %q: empty bitmap", t.Key())
	}

	format := wgpu.TextureFormatRGBA8Unorm
	pixels := bitmap.Pixels
	bytesPerPixel := 4
	switch bitmap.Channels {
	case 1:
		format = wgpu.TextureFormatR8Unorm
		bytesPerPixel = 1
	case 3:
		pixels = expandRGBToRGBA(bitmap.Pixels, bitmap.Width, bitmap.Height)
	case 4:
		// already RGBA
	default:
		return fmt.Errorf("texture %q: unsupported channel count %d", t.Key(), bitmap.Channels)
	}
	if len(pixels) < bitmap.Width*bitmap.Height*bytesPerPixel {
		return fmt.Errorf("texture %q: short pixel buffer", t.Key())
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     t.Key(),
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(bitmap.Width),
			Height:             uint32(bitmap.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(bitmap.Width * bytesPerPixel),
			RowsPerImage: uint32(bitmap.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(bitmap.Width),
			Height:             uint32(bitmap.Height),
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}

	if old, ok := b.textures[t.Key()]; ok {
		old.view.Release()
		old.texture.Release()
	}
	b.textures[t.Key()] = &textureResources{texture: tex, view: view}
	return nil
}

func (b *wgpuDeviceBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPassDescriptor == nil {
		return errors.New("surface not configured")
	}
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.renderPassDescriptor.ColorAttachments[0].View = view
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuDeviceBackendImpl) Draw(p Program, g Geometry, textures []Texture, state State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw outside of a frame")
	}
	pr, ok := b.programs[p.Key()]
	if !ok {
		return fmt.Errorf("program %q is not linked", p.Key())
	}

	gb, err := b.syncGeometryLocked(g)
	if err != nil {
		return err
	}
	if gb.vertexCount == 0 {
		return nil
	}

	pipe, err := b.pipelineForStateLocked(p.Key(), pr, g.DrawType(), state)
	if err != nil {
		return err
	}

	bindGroups, err := b.buildBindGroupsLocked(p, pr, textures)
	if err != nil {
		return err
	}

	pass := b.framePass
	pass.SetPipeline(pipe)
	for i, bindGroup := range bindGroups {
		pass.SetBindGroup(uint32(i), bindGroup, nil)
	}
	pass.SetVertexBuffer(0, gb.buffer, 0, wgpu.WholeSize)
	pass.SetStencilReference(uint32(state.StencilRef))
	if state.Viewport.W > 0 && state.Viewport.H > 0 {
		pass.SetViewport(
			float32(state.Viewport.X), float32(state.Viewport.Y),
			float32(state.Viewport.W), float32(state.Viewport.H),
			0, 1,
		)
	}
	pass.Draw(uint32(gb.vertexCount), 1, 0, 0)

	return nil
}

func (b *wgpuDeviceBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		b.surface.Present()
	}

	b.frameEncoder.Release()
	b.frameView.Release()
	b.frameSurface.Release()
	b.frameEncoder = nil
	b.framePass = nil
	b.frameSurface = nil
	b.frameView = nil

	for _, r := range b.frameGarbage {
		r.Release()
	}
	b.frameGarbage = b.frameGarbage[:0]
}

func (b *wgpuDeviceBackendImpl) DeleteShader(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if module, ok := b.shaderModules[key]; ok {
		module.Release()
		delete(b.shaderModules, key)
	}
}

func (b *wgpuDeviceBackendImpl) DeleteProgram(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pr, ok := b.programs[key]; ok {
		b.releaseProgramLocked(pr)
		delete(b.programs, key)
	}
}

func (b *wgpuDeviceBackendImpl) DeleteGeometry(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gb, ok := b.geometries[key]; ok {
		if gb.buffer != nil {
			gb.buffer.Release()
		}
		delete(b.geometries, key)
	}
}

func (b *wgpuDeviceBackendImpl) DeleteTexture(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tr, ok := b.textures[key]; ok {
		tr.view.Release()
		tr.texture.Release()
		delete(b.textures, key)
	}
}

func (b *wgpuDeviceBackendImpl) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, tr := range b.textures {
		tr.view.Release()
		tr.texture.Release()
		delete(b.textures, key)
	}
	for key, module := range b.shaderModules {
		module.Release()
		delete(b.shaderModules, key)
	}
	for key, pr := range b.programs {
		b.releaseProgramLocked(pr)
		delete(b.programs, key)
	}
	for key, gb := range b.geometries {
		if gb.buffer != nil {
			gb.buffer.Release()
		}
		delete(b.geometries, key)
	}
	for key, samp := range b.samplers {
		samp.Release()
		delete(b.samplers, key)
	}
	if b.whiteTexture != nil {
		b.whiteTexture.view.Release()
		b.whiteTexture.texture.Release()
		b.whiteTexture = nil
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

func (b *wgpuDeviceBackendImpl) releaseProgramLocked(pr *programResources) {
	for _, pipe := range pr.pipelines {
		pipe.Release()
	}
	pr.pipelineLayout.Release()
	for _, bgl := range pr.bindGroupLayouts {
		bgl.Release()
	}
}

// syncGeometryLocked creates or re-uploads the vertex buffer for a geometry
// when its version differs from the uploaded one. Fan and loop primitives
// are expanded CPU-side; WebGPU has no native topology for them.
func (b *wgpuDeviceBackendImpl) syncGeometryLocked(g Geometry) (*geometryBuffer, error) {
	gb, ok := b.geometries[g.Key()]
	if ok && gb.version == g.Version() {
		return gb, nil
	}

	vertices := expandPrimitive(g.Vertices(), g.DrawType())
	data := common.SliceToBytes(vertices)

	if gb == nil {
		gb = &geometryBuffer{}
		b.geometries[g.Key()] = gb
	}
	if gb.buffer == nil || gb.capacity < len(data) {
		if gb.buffer != nil {
			b.frameGarbage = append(b.frameGarbage, gb.buffer)
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: g.Key() + " Vertex Buffer",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		gb.buffer = buf
		gb.capacity = len(data)
	}
	if len(data) > 0 {
		b.queue.WriteBuffer(gb.buffer, 0, data)
	}
	gb.version = g.Version()
	gb.vertexCount = len(vertices)
	return gb, nil
}

// pipelineForStateLocked returns the render pipeline permutation for the
// given draw state, creating and caching it on first use.
func (b *wgpuDeviceBackendImpl) pipelineForStateLocked(programKey string, pr *programResources, primitive DrawPrimitive, state State) (*wgpu.RenderPipeline, error) {
	topology := primitiveTopology(primitive)
	stateKey := fmt.Sprintf("%d/%d/%t/%d/%d/%d/%d/%t",
		topology, state.Blending, state.PremultipliedAlpha,
		state.StencilFunc, state.StencilDPass, state.StencilFail, state.StencilMask, state.WriteColor)
	if pipe, ok := pr.pipelines[stateKey]; ok {
		return pipe, nil
	}

	vsModule := b.shaderModules[pr.vertexKey]
	fsModule := b.shaderModules[pr.fragmentKey]
	if vsModule == nil || fsModule == nil {
		return nil, fmt.Errorf("program %q: shader modules are missing", programKey)
	}

	writeMask := wgpu.ColorWriteMaskAll
	if !state.WriteColor {
		writeMask = wgpu.ColorWriteMaskNone
	}

	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: writeMask,
	}
	switch state.Blending {
	case BlendTransparent:
		srcFactor := wgpu.BlendFactorSrcAlpha
		if state.PremultipliedAlpha {
			srcFactor = wgpu.BlendFactorOne
		}
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: srcFactor,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case BlendAdditive:
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	stencilFace := wgpu.StencilFaceState{
		Compare:     stencilCompare(state.StencilFunc),
		FailOp:      stencilOperation(state.StencilFail),
		DepthFailOp: stencilOperation(state.StencilDPass),
		PassOp:      stencilOperation(state.StencilDPass),
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  programKey + " Render Pipeline",
		Layout: pr.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vsModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(common.VertexStride),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: topology,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      stencilFace,
			StencilBack:       stencilFace,
			StencilReadMask:   uint32(state.StencilMask),
			StencilWriteMask:  uint32(state.StencilMask),
		},
	})
	if err != nil {
		return nil, err
	}

	pr.pipelines[stateKey] = created
	return created, nil
}

// buildBindGroupsLocked packs the program's staged uniforms into transient
// uniform buffers and assembles one bind group per group index with the
// bound texture views and their samplers. Transient objects live until
// EndFrame; the pass holds references to them until the command buffer is
// submitted.
func (b *wgpuDeviceBackendImpl) buildBindGroupsLocked(p Program, pr *programResources, textures []Texture) ([]*wgpu.BindGroup, error) {
	groupEntries := make([][]wgpu.BindGroupEntry, len(pr.bindGroupLayouts))
	for _, slot := range pr.slots {
		entry := wgpu.BindGroupEntry{Binding: uint32(slot.binding)}
		switch slot.kind {
		case bindingUniform:
			data, err := packUniforms(slot.layout, p.Uniforms())
			if err != nil {
				return nil, err
			}
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: p.Key() + " Uniform Buffer",
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, err
			}
			b.queue.WriteBuffer(buf, 0, data)
			b.frameGarbage = append(b.frameGarbage, buf)
			entry.Buffer = buf
			entry.Size = wgpu.WholeSize
		case bindingTexture:
			tex := textureForSlot(p, textures, slot.name)
			view, err := b.textureViewLocked(tex)
			if err != nil {
				return nil, err
			}
			entry.TextureView = view
		case bindingSampler:
			tex := textureForSlot(p, textures, samplerTextureName(slot.name))
			samp, err := b.samplerForTextureLocked(tex)
			if err != nil {
				return nil, err
			}
			entry.Sampler = samp
		}
		groupEntries[slot.group] = append(groupEntries[slot.group], entry)
	}

	bindGroups := make([]*wgpu.BindGroup, len(pr.bindGroupLayouts))
	for i, layout := range pr.bindGroupLayouts {
		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s Bind Group %d", p.Key(), i),
			Layout:  layout,
			Entries: groupEntries[i],
		})
		if err != nil {
			return nil, err
		}
		b.frameGarbage = append(b.frameGarbage, bindGroup)
		bindGroups[i] = bindGroup
	}
	return bindGroups, nil
}

// textureForSlot finds the texture bound to the sampler name the shader
// declares. Returns nil when the unit is unbound.
func textureForSlot(p Program, textures []Texture, samplerName string) Texture {
	for unit := 0; unit < p.TextureCount() && unit < len(textures); unit++ {
		if p.TextureBinding(unit).SamplerName == samplerName {
			return textures[unit]
		}
	}
	return nil
}

// samplerTextureName maps a sampler variable back to its texture variable.
// Shaders declare samplers as <textureName>Sampler.
func samplerTextureName(name string) string {
	const suffix = "Sampler"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

// textureViewLocked returns the GPU view for a texture, falling back to the
// shared 1x1 white texture when the unit is unbound or not yet uploaded.
func (b *wgpuDeviceBackendImpl) textureViewLocked(t Texture) (*wgpu.TextureView, error) {
	if t != nil && t.IsUploaded() {
		if tr, ok := b.textures[t.Key()]; ok {
			return tr.view, nil
		}
	}
	return b.whiteTextureViewLocked()
}

func (b *wgpuDeviceBackendImpl) whiteTextureViewLocked() (*wgpu.TextureView, error) {
	if b.whiteTexture != nil {
		return b.whiteTexture.view, nil
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "White Fallback Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              1,
			Height:             1,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		[]byte{0xFF, 0xFF, 0xFF, 0xFF},
		&wgpu.TextureDataLayout{BytesPerRow: 4, RowsPerImage: 1},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	b.whiteTexture = &textureResources{texture: tex, view: view}
	return view, nil
}

// samplerForTextureLocked returns a sampler matching the texture's filter
// and wrap settings, shared across textures with the same settings.
func (b *wgpuDeviceBackendImpl) samplerForTextureLocked(t Texture) (*wgpu.Sampler, error) {
	minFilter := MinFilterLinear
	magFilter := MagFilterLinear
	wrapX := WrapClamp
	wrapY := WrapClamp
	if t != nil {
		minFilter = t.MinFilter()
		magFilter = t.MagFilter()
		wrapX = t.WrapX()
		wrapY = t.WrapY()
	}

	key := fmt.Sprintf("%d/%d/%d/%d", minFilter, magFilter, wrapX, wrapY)
	if samp, ok := b.samplers[key]; ok {
		return samp, nil
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Sampler " + key,
		AddressModeU:  addressMode(wrapX),
		AddressModeV:  addressMode(wrapY),
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     magFilterMode(magFilter),
		MinFilter:     minFilterMode(minFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	b.samplers[key] = samp
	return samp, nil
}

// expandPrimitive rewrites fan and loop vertex streams into list topologies.
func expandPrimitive(vertices []common.Vertex, primitive DrawPrimitive) []common.Vertex {
	switch primitive {
	case DrawTriangleFan:
		if len(vertices) < 3 {
			return nil
		}
		out := make([]common.Vertex, 0, (len(vertices)-2)*3)
		for i := 2; i < len(vertices); i++ {
			out = append(out, vertices[0], vertices[i-1], vertices[i])
		}
		return out
	case DrawLineLoop:
		if len(vertices) < 2 {
			return vertices
		}
		out := make([]common.Vertex, 0, len(vertices)+1)
		out = append(out, vertices...)
		out = append(out, vertices[0])
		return out
	default:
		return vertices
	}
}

func primitiveTopology(primitive DrawPrimitive) wgpu.PrimitiveTopology {
	switch primitive {
	case DrawPoints:
		return wgpu.PrimitiveTopologyPointList
	case DrawLines:
		return wgpu.PrimitiveTopologyLineList
	case DrawLineLoop:
		return wgpu.PrimitiveTopologyLineStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func stencilCompare(fn StencilFunc) wgpu.CompareFunction {
	switch fn {
	case StencilRefIsEqual:
		return wgpu.CompareFunctionEqual
	default:
		return wgpu.CompareFunctionAlways
	}
}

func stencilOperation(op StencilOp) wgpu.StencilOperation {
	switch op {
	case StencilWriteRef:
		return wgpu.StencilOperationReplace
	case StencilWriteZero:
		return wgpu.StencilOperationZero
	default:
		return wgpu.StencilOperationKeep
	}
}

func addressMode(wrap TextureWrap) wgpu.AddressMode {
	if wrap == WrapRepeat {
		return wgpu.AddressModeRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func minFilterMode(filter MinFilter) wgpu.FilterMode {
	switch filter {
	case MinFilterNearest:
		return wgpu.FilterModeNearest
	default:
		return wgpu.FilterModeLinear
	}
}

func magFilterMode(filter MagFilter) wgpu.FilterMode {
	if filter == MagFilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func expandRGBToRGBA(pixels []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		out[i*4+0] = pixels[i*3+0]
		out[i*4+1] = pixels[i*3+1]
		out[i*4+2] = pixels[i*3+2]
		out[i*4+3] = 0xFF
	}
	return out
}
