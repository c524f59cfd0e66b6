//go:build unix

package artnet

import (
	"syscall"

	"github.com/libp2p/go-reuseport"
	"golang.org/x/sys/unix"
)

// control enables broadcast receipt and, optionally, port sharing with other
// Art-Net receivers on the same host.
func control(reusePort bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		if reusePort {
			if err := reuseport.Control(network, address, c); err != nil {
				return err
			}
		}
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
