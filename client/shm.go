package wl

import (
	"os"

	"deedles.dev/xwl/wire"
)

type Shm struct {
	Format func(ShmFormat)

	object
}

// BindShm binds the wl_shm global with the given name.
func BindShm(display *Display, name uint32) *Shm {
	shm := Shm{object: object{display: display}}
	display.GetRegistry().Bind(name, ShmInterface, ShmVersion, &shm)
	return &shm
}

func (shm *Shm) Interface() string {
	return ShmInterface
}

func (shm *Shm) MethodName(op uint16) string {
	return eventName([]string{"format"}, op)
}

// CreatePool creates a pool backed by file, which must be at least
// size bytes long. The file may be closed once this returns.
func (shm *Shm) CreatePool(file *os.File, size int32) *ShmPool {
	pool := ShmPool{object: object{display: shm.display}}
	shm.display.AddObject(&pool)

	msg := wire.NewMessage(shm, shmCreatePoolOp, "create_pool", &pool, file, size)
	msg.WriteObject(&pool)
	msg.WriteFile(file)
	msg.WriteInt(size)
	shm.display.Enqueue(msg)

	return &pool
}

func (shm *Shm) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case shmFormatEvent:
		format := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if shm.Format != nil {
			shm.Format(ShmFormat(format))
		}
		return nil

	default:
		return unknownEvent(shm, msg.Op())
	}
}
