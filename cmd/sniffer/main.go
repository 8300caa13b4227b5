// The sniffer command captures table traffic off the wire and pretty-prints
// the decoded frames. Useful for debugging clients without instrumenting the
// server itself.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

var (
	device        = flag.String("d", "en0", "Device on which to listen for packets")
	tablePort     = flag.Int("table-port", 13123, "TCP port of the table server")
	discoveryPort = flag.Int("discovery-port", 13122, "UDP port used for discovery offers")
)

func main() {
	flag.Parse()

	if getDeviceIP() == "" {
		exit("invalid device: %s", *device)
	}

	handle, err := pcap.OpenLive(*device, math.MaxInt32, false, pcap.BlockForever)
	if err != nil {
		exit("error opening handle: %v", err)
	}
	filter := fmt.Sprintf("(tcp port %d) or (udp port %d)", *tablePort, *discoveryPort)
	if err := handle.SetBPFFilter(filter); err != nil {
		exit("error setting filter %q: %v", filter, err)
	}

	s := &sniffer{
		Writer:    bufio.NewWriter(os.Stdout),
		TablePort: uint16(*tablePort),
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	s.startReading(packetSource.Packets())
}

func exit(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func getDeviceIP() string {
	devs, _ := pcap.FindAllDevs()
	for _, dev := range devs {
		if dev.Name == *device {
			for _, address := range dev.Addresses {
				return address.IP.String()
			}
		}
	}
	return ""
}
