package wl

import "deedles.dev/xwl/wire"

type ShmPool struct {
	object
}

func (pool *ShmPool) Interface() string {
	return ShmPoolInterface
}

func (pool *ShmPool) MethodName(op uint16) string {
	return "unknown"
}

func (pool *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	return unknownEvent(pool, msg.Op())
}

func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format ShmFormat) *Buffer {
	buf := Buffer{object: object{display: pool.display}}
	pool.display.AddObject(&buf)

	msg := wire.NewMessage(pool, shmPoolCreateBufferOp, "create_buffer", &buf, offset, width, height, stride, format)
	msg.WriteObject(&buf)
	msg.WriteInt(offset)
	msg.WriteInt(width)
	msg.WriteInt(height)
	msg.WriteInt(stride)
	msg.WriteUint(uint32(format))
	pool.display.Enqueue(msg)

	return &buf
}

// Resize grows the pool. Pools can never shrink.
func (pool *ShmPool) Resize(size int32) {
	msg := wire.NewMessage(pool, shmPoolResizeOp, "resize", size)
	msg.WriteInt(size)
	pool.display.Enqueue(msg)
}

// Destroy destroys the pool. Buffers created from it remain valid.
func (pool *ShmPool) Destroy() {
	pool.display.Enqueue(wire.NewMessage(pool, shmPoolDestroyOp, "destroy"))
}
