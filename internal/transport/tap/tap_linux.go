//go:build linux

package tap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v5"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/log"
	"firestige.xyz/vbridge/internal/transport"
	"firestige.xyz/vbridge/internal/transport/mux"
)

func init() {
	transport.Register(Name, Open)
}

// Open creates numPorts TAP interfaces and multiplexes their reads.
func Open(ctx context.Context, cfg config.TransportConfig, numPorts int) (transport.Transport, error) {
	readBuffer := int(cfg.ReadBuffer.Bytes())

	devices := make([]mux.Device, 0, numPorts)
	closeAll := func() {
		for _, d := range devices {
			_ = d.Close()
		}
	}
	for port := 0; port < numPorts; port++ {
		name := InterfaceName(cfg.Tap.NamePrefix, port)
		dev, err := transport.OpenWithRetry(ctx, cfg.OpenTimeout, func() (*device, error) {
			return create(name, readBuffer)
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("tap: port %d (%s): %w", port, name, err)
		}
		log.GetLogger().WithField("port", port).WithField("iface", name).Info("tap port created")
		devices = append(devices, dev)
	}

	m, err := mux.New(devices, cfg.QueueSize)
	if err != nil {
		closeAll()
		return nil, err
	}
	return m, nil
}

type device struct {
	name       string
	file       *os.File
	readBuffer int
}

func create(name string, readBuffer int) (*device, error) {
	la := netlink.NewLinkAttrs()
	la.Name = name
	link := &netlink.Tuntap{
		LinkAttrs:  la,
		Mode:       netlink.TUNTAP_MODE_TAP,
		Flags:      netlink.TUNTAP_NO_PI,
		Queues:     1,
		NonPersist: true,
	}
	if err := netlink.LinkAdd(link); err != nil {
		if errors.Is(err, unix.EPERM) {
			return nil, backoff.Permanent(fmt.Errorf("create %s: %w", name, err))
		}
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	if len(link.Fds) != 1 {
		closeFiles(link.Fds)
		return nil, backoff.Permanent(fmt.Errorf("create %s: expected 1 queue, got %d", name, len(link.Fds)))
	}

	file, err := pollable(link.Fds[0], name)
	if err != nil {
		return nil, err
	}
	if err := netlink.LinkSetUp(link); err != nil {
		file.Close()
		return nil, fmt.Errorf("set %s up: %w", name, err)
	}
	return &device{name: name, file: file, readBuffer: readBuffer}, nil
}

// pollable swaps f for a non-blocking duplicate so that Close interrupts a
// pending Read. f is always closed.
func pollable(f *os.File, name string) (*os.File, error) {
	defer f.Close()
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("dup %s: %w", name, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set %s non-blocking: %w", name, err)
	}
	return os.NewFile(uintptr(fd), name), nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

func (d *device) ReadFrame() ([]byte, error) {
	buf := make([]byte, d.readBuffer)
	n, err := d.file.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (d *device) WriteFrame(data []byte) error {
	_, err := d.file.Write(data)
	return err
}

// Close releases the queue; the kernel removes the non-persistent interface.
func (d *device) Close() error {
	return d.file.Close()
}
