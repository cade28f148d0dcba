package wl

import "deedles.dev/xwl/wire"

// Interface names and the highest versions of them that this package
// understands.
const (
	DisplayInterface    = "wl_display"
	RegistryInterface   = "wl_registry"
	CallbackInterface   = "wl_callback"
	CompositorInterface = "wl_compositor"
	SurfaceInterface    = "wl_surface"
	ShmInterface        = "wl_shm"
	ShmPoolInterface    = "wl_shm_pool"
	BufferInterface     = "wl_buffer"

	CompositorVersion = 4
	ShmVersion        = 1
)

const (
	displaySyncOp        = 0
	displayGetRegistryOp = 1

	displayErrorEvent    = 0
	displayDeleteIDEvent = 1
)

const (
	registryBindOp = 0

	registryGlobalEvent       = 0
	registryGlobalRemoveEvent = 1
)

const callbackDoneEvent = 0

const (
	compositorCreateSurfaceOp = 0
)

const (
	surfaceDestroyOp      = 0
	surfaceAttachOp       = 1
	surfaceDamageOp       = 2
	surfaceFrameOp        = 3
	surfaceCommitOp       = 6
	surfaceDamageBufferOp = 9

	surfaceEnterEvent = 0
	surfaceLeaveEvent = 1
)

const (
	shmCreatePoolOp = 0

	shmFormatEvent = 0
)

const (
	shmPoolCreateBufferOp = 0
	shmPoolDestroyOp      = 1
	shmPoolResizeOp       = 2
)

const (
	bufferDestroyOp = 0

	bufferReleaseEvent = 0
)

// ShmFormat is a pixel layout tag understood by wl_shm. The values
// are the DRM fourcc codes, except for the two formats that every
// compositor is required to support.
type ShmFormat uint32

const (
	ShmFormatArgb8888 ShmFormat = 0
	ShmFormatXrgb8888 ShmFormat = 1
	ShmFormatRgb565   ShmFormat = 0x36314752
)

func (f ShmFormat) String() string {
	switch f {
	case ShmFormatArgb8888:
		return "argb8888"
	case ShmFormatXrgb8888:
		return "xrgb8888"
	case ShmFormatRgb565:
		return "rgb565"
	}
	return "unknown"
}

func unknownEvent(obj wire.Object, op uint16) error {
	return wire.UnknownOpError{
		Interface: obj.Interface(),
		Type:      "event",
		Op:        op,
	}
}

func eventName(names []string, op uint16) string {
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}
