package wire

import (
	"io"
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

type testObject struct {
	id uint32
}

func (obj *testObject) ID() uint32                        { return obj.id }
func (obj *testObject) SetID(id uint32)                   { obj.id = id }
func (obj *testObject) Interface() string                 { return "test_object" }
func (obj *testObject) Dispatch(msg *MessageBuffer) error { return nil }
func (obj *testObject) Delete()                           {}
func (obj *testObject) MethodName(op uint16) string       { return "poke" }

func socketPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}

	conns := make([]*Conn, 2)
	for i, fd := range fds {
		file := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(file)
		file.Close()
		if err != nil {
			t.Fatalf("file conn: %v", err)
		}
		conns[i] = NewConn(c.(*net.UnixConn))
		t.Cleanup(func() { conns[i].Close() })
	}
	return conns[0], conns[1]
}

func TestMessageRoundTrip(t *testing.T) {
	a, b := socketPair(t)

	file, err := os.CreateTemp(t.TempDir(), "payload")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer file.Close()
	if _, err := io.WriteString(file, "pixels"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	sender := &testObject{id: 7}
	msg := NewMessage(sender, 3, "poke")
	msg.WriteInt(-12)
	msg.WriteUint(0xCAFE)
	msg.WriteString("wl_surface")
	msg.WriteArray([]byte{1, 2, 3})
	msg.WriteFixed(FixedFloat(-1.5))
	msg.WriteObject(sender)
	msg.WriteObject((*testObject)(nil))
	msg.WriteFile(file)
	if err := msg.Build(a); err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if got.Sender() != 7 || got.Op() != 3 {
		t.Fatalf("header = %v/%v, want 7/3", got.Sender(), got.Op())
	}
	if v := got.ReadInt(); v != -12 {
		t.Errorf("ReadInt() = %v, want -12", v)
	}
	if v := got.ReadUint(); v != 0xCAFE {
		t.Errorf("ReadUint() = %#x, want 0xcafe", v)
	}
	if v := got.ReadString(); v != "wl_surface" {
		t.Errorf("ReadString() = %q, want %q", v, "wl_surface")
	}
	if v := got.ReadArray(); string(v) != "\x01\x02\x03" {
		t.Errorf("ReadArray() = %v, want [1 2 3]", v)
	}
	if v := got.ReadFixed(); v.Float() != -1.5 {
		t.Errorf("ReadFixed() = %v, want -1.5", v)
	}
	if v := got.ReadUint(); v != 7 {
		t.Errorf("object arg = %v, want 7", v)
	}
	if v := got.ReadUint(); v != 0 {
		t.Errorf("nil object arg = %v, want 0", v)
	}
	f := got.ReadFile()
	if err := got.Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer f.Close()

	data := make([]byte, 6)
	if _, err := f.ReadAt(data, 0); err != nil {
		t.Fatalf("read passed file: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("passed file contents = %q, want %q", data, "pixels")
	}
}

func TestMessageBufferShortRead(t *testing.T) {
	a, b := socketPair(t)

	msg := NewMessage(&testObject{id: 1}, 0, "poke")
	msg.WriteUint(1)
	if err := msg.Build(a); err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	got.ReadUint()
	got.ReadUint()
	if err := got.Err(); err != io.ErrUnexpectedEOF {
		t.Errorf("Err() = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestFixed(t *testing.T) {
	tests := []struct {
		in   float64
		i    int
		frac int
	}{
		{in: 0, i: 0, frac: 0},
		{in: 1.5, i: 1, frac: 128},
		{in: -1.5, i: -2, frac: 128},
		{in: 10.25, i: 10, frac: 64},
	}

	for _, test := range tests {
		f := FixedFloat(test.in)
		if f.Float() != test.in {
			t.Errorf("FixedFloat(%v).Float() = %v", test.in, f.Float())
		}
		if f.Int() != test.i {
			t.Errorf("FixedFloat(%v).Int() = %v, want %v", test.in, f.Int(), test.i)
		}
		if f.Frac() != test.frac {
			t.Errorf("FixedFloat(%v).Frac() = %v, want %v", test.in, f.Frac(), test.frac)
		}
	}

	if FixedInt(3).Float() != 3 {
		t.Errorf("FixedInt(3) = %v", FixedInt(3))
	}
}
