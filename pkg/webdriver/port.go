package webdriver

import (
	"fmt"
	"net"
)

// freePort asks the kernel for an unused TCP port on host.
//
// There is a small race window between closing the listener and the
// driver binding the port.
func freePort(host string) (int, error) {
	if host == "" {
		host = "127.0.0.1"
	}

	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}
