package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sixteen-systems/lc3vm/internal/cli"
	"github.com/sixteen-systems/lc3vm/internal/control"
	"github.com/sixteen-systems/lc3vm/internal/log"
	"github.com/sixteen-systems/lc3vm/internal/monitor"
	"github.com/sixteen-systems/lc3vm/internal/rpc"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// Debug is the command that serves the remote-debug protocol over TCP, handing a fresh machine to
// whichever controller connects first.
func Debug() cli.Command {
	return &debug{addr: ":2540"}
}

type debug struct {
	addr  string
	json  bool
	quiet bool
}

func (debug) Description() string {
	return "serve the remote debug protocol over TCP"
}

func (debug) Usage(out io.Writer) error {
	var err error
	_, err = fmt.Fprintln(out, `debug [ -addr host:port ] [ -json ]

Listen for a debug controller and expose the machine's control surface over it.`)

	return err
}

func (d *debug) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)

	fs.StringVar(&d.addr, "addr", d.addr, "address to listen on")
	fs.BoolVar(&d.json, "json", false, "use the JSON codec instead of gob")
	fs.BoolVar(&d.quiet, "quiet", false, "enable quiet output")

	return fs
}

func (d *debug) Run(ctx context.Context, _ []string, _ io.Writer, logger *log.Logger) int {
	if d.quiet {
		log.LogLevel.Set(log.Error)
	}

	listener, err := net.Listen("tcp", d.addr)
	if err != nil {
		logger.Error("listen", "err", err)
		return 1
	}
	defer listener.Close()

	logger.Info("Listening for debug controller", "addr", listener.Addr())

	machine := vm.New(
		vm.WithLogger(logger),
		vm.WithGPIO(),
		vm.WithADC(),
		vm.WithPWM(),
		vm.WithTimers(),
		vm.WithClock(),
		monitor.WithDefaultSystemImage(),
	)

	session := control.NewLoadSession(&machine.Mem)
	ctrl := control.NewLC3Control(machine, session, control.DeviceInfo{ID: "lc3vm", Version: "debug"})

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return 0
			}

			logger.Error("accept", "err", err)
			return 1
		}

		logger.Info("Controller connected", "remote", conn.RemoteAddr())
		d.serve(ctx, conn, ctrl, logger)
	}
}

// serve drains one controller connection to completion, stepping the device on a fixed tick until
// the connection closes or the command's context is cancelled.
func (d *debug) serve(ctx context.Context, conn net.Conn, ctrl control.Control, logger *log.Logger) {
	defer conn.Close()

	var dec rpc.Decoder = rpc.TransparentDecoding{}
	if d.json {
		dec = rpc.JSONDecoding{}
	}

	tx := rpc.NewNetTransport(conn)
	defer tx.Close()

	device := rpc.NewDevice(dec, tx)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tx.Done():
			logger.Info("Controller disconnected", "remote", conn.RemoteAddr())
			return
		case <-ticker.C:
			device.Step(ctrl)
		}
	}
}
