//go:build !unix

package artnet

import "syscall"

func control(bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
