// ABOUTME: Entry point for the synchronizing node CLI
// ABOUTME: Parses CLI flags, discovers or dials a reference node, and starts the estimator loop
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/driftsync/driftsync/internal/dashboard"
	"github.com/driftsync/driftsync/internal/discovery"
	"github.com/driftsync/driftsync/internal/stats"
	"github.com/driftsync/driftsync/internal/statsapi"
	"github.com/driftsync/driftsync/internal/syncnode"
	clocksync "github.com/driftsync/driftsync/pkg/sync"
)

var (
	refAddr   = flag.String("ref", "", "Reference node address, host:port (skip mDNS discovery)")
	algorithm = flag.String("algorithm", "tiny", "Estimator algorithm: tiny or mini")
	interval  = flag.Duration("interval", time.Second, "Beacon send interval")
	apiAddr   = flag.String("api-addr", "", "Stats API listen address, e.g. :8928 (empty disables)")
	csvPath   = flag.String("csv", "driftsync-samples.csv", "Path to the CSV sample log")
	useTUI    = flag.Bool("tui", false, "Show a live dashboard instead of logging samples")
	logFile   = flag.String("log-file", "driftsync.log", "Log file path")
	name      = flag.String("name", "", "Sync node friendly name (default: hostname-driftsync)")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if !*useTUI {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.SetOutput(f)
	}

	nodeName := *name
	if nodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		nodeName = fmt.Sprintf("%s-driftsync", hostname)
	}

	algo := clocksync.Tiny
	switch *algorithm {
	case "tiny":
		algo = clocksync.Tiny
	case "mini":
		algo = clocksync.Mini
	default:
		log.Fatalf("unknown algorithm %q: want \"tiny\" or \"mini\"", *algorithm)
	}

	resolvedRefAddr := *refAddr
	var mdnsMgr *discovery.Manager
	if resolvedRefAddr == "" {
		mdnsMgr = discovery.NewManager(discovery.Config{ServiceName: nodeName})
		if err := mdnsMgr.Browse(); err != nil {
			log.Fatalf("mDNS browse failed: %v", err)
		}
		log.Printf("Waiting for a reference node via mDNS...")
		select {
		case ref := <-mdnsMgr.References():
			resolvedRefAddr = fmt.Sprintf("%s:%d", ref.Host, ref.Port)
			log.Printf("Discovered reference node %s at %s", ref.Name, resolvedRefAddr)
		case <-time.After(30 * time.Second):
			log.Fatalf("no reference node discovered within 30s; pass -ref explicitly")
		}
		mdnsMgr.Stop()
	}

	cfg := syncnode.DefaultConfig(resolvedRefAddr)
	cfg.Algorithm = algo
	cfg.Transport.Interval = *interval

	node, err := syncnode.New(cfg)
	if err != nil {
		log.Fatalf("failed to create sync node: %v", err)
	}

	rec, err := stats.NewRecorder(*csvPath, 512)
	if err != nil {
		log.Fatalf("failed to open stats log: %v", err)
	}
	defer rec.Close()
	node.OnSample(func(snap syncnode.Snapshot) {
		if err := rec.Record(snap); err != nil {
			log.Printf("failed to record sample: %v", err)
		}
	})

	var api *statsapi.Server
	if *apiAddr != "" {
		// rec is already fed by the OnSample callback above; a nil recorder
		// keeps the stats API from writing a second row per sample.
		api = statsapi.New(statsapi.Config{Addr: *apiAddr, CSVPath: *csvPath}, node, nil)
		if err := api.Start(); err != nil {
			log.Fatalf("failed to start stats API: %v", err)
		}
	}

	var dash *dashboard.Dashboard
	if *useTUI {
		dash = dashboard.New(nodeName, resolvedRefAddr)
		node.OnSample(dash.Push)
	}

	log.Printf("Starting driftsync: %s, algorithm=%s, reference=%s", nodeName, algo, resolvedRefAddr)

	if err := node.Start(); err != nil {
		log.Fatalf("failed to start sync node: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdown := func() {
		node.Stop()
		if api != nil {
			api.Stop()
		}
		if !*useTUI {
			printSummaryTable(rec)
		}
		log.Printf("driftsync stopped")
	}

	if dash != nil {
		go func() {
			select {
			case sig := <-sigChan:
				log.Printf("Received %v signal, shutting down gracefully...", sig)
			case <-dash.QuitChan():
			}
			dash.Stop()
			shutdown()
		}()
		if err := dash.Run(nodeName, resolvedRefAddr); err != nil {
			log.Fatalf("dashboard error: %v", err)
		}
		return
	}

	sig := <-sigChan
	log.Printf("Received %v signal, shutting down gracefully...", sig)
	shutdown()
}

// printSummaryTable renders the tail of the sample log to stdout, giving
// an at-a-glance summary for runs that didn't use the live dashboard.
func printSummaryTable(rec *stats.Recorder) {
	recent := rec.Recent()
	if len(recent) == 0 {
		return
	}
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Seq", "Algorithm", "Drift", "Drift Err", "Offset (us)", "Offset Err", "Sent", "Recv", "Lost"})
	for _, snap := range recent {
		t.AppendRow(table.Row{
			snap.LastSampleSeq, snap.Algorithm,
			fmt.Sprintf("%.8f", snap.Drift.Value), fmt.Sprintf("%.8f", snap.Drift.Error),
			fmt.Sprintf("%.1f", snap.Offset.Value), fmt.Sprintf("%.1f", snap.Offset.Error),
			snap.BeaconsSent, snap.BeaconsRecv, snap.BeaconsLost,
		})
	}
	t.Render()
}
