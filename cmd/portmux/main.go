// Command portmux runs a port demultiplexing simulation over a loopback
// network.
package main

import "github.com/sarchlab/portmux/cmd/portmux/cmd"

func main() {
	cmd.Execute()
}
