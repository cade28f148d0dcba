// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is primarly intended for usage by the hand-written
// protocol objects in the client package.
package wire

// Object represents a Wayland protocol object.
type Object interface {
	// ID returns the object's ID, or 0 if it has not been assigned
	// one yet.
	ID() uint32

	// SetID assigns the object's ID. It is called when the object is
	// added to an object store.
	SetID(id uint32)

	// Interface returns the name of the protocol interface that the
	// object implements, such as "wl_surface".
	Interface() string

	// Dispatch pertforms the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// Delete is called when the object's ID is retired by the other
	// side of the connection.
	Delete()

	// MethodName returns the name of the event or request with the
	// given opcode. It is used only for debugging output.
	MethodName(op uint16) string
}

// NewID is the payload of an untyped new_id argument, such as the one
// used by wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

// padding returns the number of bytes needed to pad a value of the
// given length to a 32-bit boundary.
func padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}
