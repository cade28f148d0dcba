package wl

import (
	"deedles.dev/xwl/wire"
	"golang.org/x/exp/maps"
)

// Interface describes a global advertised by the compositor.
type Interface struct {
	Name    string
	Version uint32
}

type Registry struct {
	Global       func(name uint32, inter string, version uint32)
	GlobalRemove func(name uint32)

	object
	globals map[uint32]Interface
}

func (registry *Registry) Interface() string {
	return RegistryInterface
}

func (registry *Registry) MethodName(op uint16) string {
	return eventName([]string{"global", "global_remove"}, op)
}

// Globals returns a snapshot of the globals that have been announced
// so far.
func (registry *Registry) Globals() map[uint32]Interface {
	return maps.Clone(registry.globals)
}

// Bind binds the global with the given name to obj, which must not
// have been added to the display yet.
func (registry *Registry) Bind(name uint32, inter string, version uint32, obj wire.Object) {
	registry.display.AddObject(obj)

	id := wire.NewID{Interface: inter, Version: version, ID: obj.ID()}
	msg := wire.NewMessage(registry, registryBindOp, "bind", name, inter, version, obj)
	msg.WriteUint(name)
	msg.WriteNewID(id)
	registry.display.Enqueue(msg)
}

func (registry *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case registryGlobalEvent:
		name := msg.ReadUint()
		inter := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		registry.globals[name] = Interface{Name: inter, Version: version}
		if registry.Global != nil {
			registry.Global(name, inter, version)
		}
		return nil

	case registryGlobalRemoveEvent:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		delete(registry.globals, name)
		if registry.GlobalRemove != nil {
			registry.GlobalRemove(name)
		}
		return nil

	default:
		return unknownEvent(registry, msg.Op())
	}
}
