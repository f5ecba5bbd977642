package rpc

// transport.go carries encoded messages between a Controller and a Device. ChannelTransport is
// grounded directly in the original protocol's channel-backed transport: a buffered in-process
// queue standing in for whatever byte stream (serial line, TCP socket, pipe) actually separates
// the two sides in a real deployment. NetTransport is that real deployment: a length-prefixed
// framing of the same Transport interface over a net.Conn.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

var (
	errTransport = errors.New("rpc: transport")

	// ErrTransportClosed is returned sending on, or receiving from, a closed transport.
	ErrTransportClosed = fmt.Errorf("%w: closed", errTransport)

	// ErrTransportFull is returned sending on a transport whose buffer has no room.
	ErrTransportFull = fmt.Errorf("%w: full", errTransport)
)

// Transport carries encoded messages one direction out, the other in. Get is non-blocking: it
// reports false instead of blocking when nothing is pending, so Controller.Tick and Device.Step
// can be driven from a plain polling loop.
type Transport interface {
	Send([]byte) error
	Get() ([]byte, bool, error)
}

// ChannelTransport is a Transport backed by a pair of buffered Go channels: out carries Sent data
// away, in carries data back. A standalone ChannelTransport loops out onto in, which is only useful
// for tests exercising one side in isolation; LoopbackPair wires two instances to each other for a
// real round trip.
type ChannelTransport struct {
	out    chan<- []byte
	in     <-chan []byte
	closed chan struct{}
}

// NewChannelTransport creates a standalone transport that loops Sent data back to its own Get.
func NewChannelTransport(depth int) *ChannelTransport {
	ch := make(chan []byte, depth)

	return &ChannelTransport{out: ch, in: ch, closed: make(chan struct{})}
}

// Send enqueues data, failing immediately if the buffer has no room or the transport is closed,
// rather than blocking the caller.
func (t *ChannelTransport) Send(data []byte) error {
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	select {
	case t.out <- data:
		return nil
	default:
		return ErrTransportFull
	}
}

// Get returns the next pending message, if any, without blocking.
func (t *ChannelTransport) Get() ([]byte, bool, error) {
	select {
	case <-t.closed:
		return nil, false, ErrTransportClosed
	default:
	}

	select {
	case data := <-t.in:
		return data, true, nil
	default:
		return nil, false, nil
	}
}

// Close marks the transport closed; further Send/Get calls fail. Closing either half of a
// LoopbackPair closes both, since they share one closed signal.
func (t *ChannelTransport) Close() {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
}

// LoopbackPair returns two connected ChannelTransports: data Sent on one arrives via Get on the
// other, and vice versa. Used by tests and the in-process demo path, where a Controller and Device
// share a process instead of a real byte stream.
func LoopbackPair(depth int) (controllerSide, deviceSide *ChannelTransport) {
	toDevice := make(chan []byte, depth)
	toController := make(chan []byte, depth)
	closed := make(chan struct{})

	controllerSide = &ChannelTransport{out: toDevice, in: toController, closed: closed}
	deviceSide = &ChannelTransport{out: toController, in: toDevice, closed: closed}

	return controllerSide, deviceSide
}

// NetTransport is a Transport over a net.Conn (a TCP socket or any other stream), for deployments
// where Controller and Device are separate processes rather than sharing one via ChannelTransport.
// Each message is framed with a four-byte big-endian length prefix so Get can recover message
// boundaries from the underlying stream.
type NetTransport struct {
	conn net.Conn

	writeMut sync.Mutex

	recv      chan []byte
	readErr   chan error
	closeOnce sync.Once
	closed    chan struct{}
}

// NewNetTransport wraps conn and starts a background goroutine reading framed messages off it.
func NewNetTransport(conn net.Conn) *NetTransport {
	t := &NetTransport{
		conn:    conn,
		recv:    make(chan []byte, 16),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}

	go t.readLoop()

	return t
}

func (t *NetTransport) readLoop() {
	var lenBuf [4]byte

	for {
		if _, err := io.ReadFull(t.conn, lenBuf[:]); err != nil {
			t.readErr <- err
			return
		}

		size := binary.BigEndian.Uint32(lenBuf[:])
		data := make([]byte, size)

		if _, err := io.ReadFull(t.conn, data); err != nil {
			t.readErr <- err
			return
		}

		select {
		case t.recv <- data:
		case <-t.closed:
			return
		}
	}
}

// Send writes one length-prefixed frame. Unlike ChannelTransport, Send blocks for the duration of
// the write syscall, since there is no bounded in-memory queue standing between the two sides.
func (t *NetTransport) Send(data []byte) error {
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	t.writeMut.Lock()
	defer t.writeMut.Unlock()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))

	if _, err := t.conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: %s", errTransport, err)
	}

	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("%w: %s", errTransport, err)
	}

	return nil
}

// Get returns the next framed message, if any, without blocking.
func (t *NetTransport) Get() ([]byte, bool, error) {
	select {
	case data := <-t.recv:
		return data, true, nil
	case err := <-t.readErr:
		t.Close()
		return nil, false, fmt.Errorf("%w: %s", errTransport, err)
	case <-t.closed:
		return nil, false, ErrTransportClosed
	default:
		return nil, false, nil
	}
}

// Done returns a channel closed once the transport has shut down, whether by an explicit Close or
// by the underlying connection failing, so a caller driving Device.Step can stop polling a dead
// connection instead of looping forever.
func (t *NetTransport) Done() <-chan struct{} {
	return t.closed
}

// Close shuts down the underlying connection and stops the read loop.
func (t *NetTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
		_ = t.conn.Close()
	})
}
