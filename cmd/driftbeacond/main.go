// ABOUTME: Entry point for the reference (beacon) node daemon
// ABOUTME: Parses CLI flags and starts the UDP beacon responder
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftsync/driftsync/internal/discovery"
	"github.com/driftsync/driftsync/internal/refnode"
)

var (
	port    = flag.Int("port", 8927, "UDP port to listen on for beacon requests")
	name    = flag.String("name", "", "Reference node friendly name (default: hostname-driftbeacon)")
	logFile = flag.String("log-file", "driftbeacond.log", "Log file path")
	noMDNS  = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	nodeName := *name
	if nodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		nodeName = fmt.Sprintf("%s-driftbeacon", hostname)
	}

	log.Printf("Starting driftbeacond: %s on port %d", nodeName, *port)
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	node := refnode.New(refnode.Config{
		Addr: fmt.Sprintf(":%d", *port),
		Name: nodeName,
	})

	var mdnsMgr *discovery.Manager
	if !*noMDNS {
		mdnsMgr = discovery.NewManager(discovery.Config{
			ServiceName: nodeName,
			Port:        *port,
		})
		if err := mdnsMgr.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
			mdnsMgr = nil
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	if err := node.Start(); err != nil {
		log.Fatalf("driftbeacond: failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received %v signal, shutting down gracefully...", sig)

	node.Stop()
	if mdnsMgr != nil {
		mdnsMgr.Stop()
	}
	log.Printf("driftbeacond stopped, served %d beacon requests", node.Served())
}
