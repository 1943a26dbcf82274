package importer

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/loamdb/loam/input"
	"github.com/loamdb/loam/internal/version"
	"github.com/loamdb/loam/store"
)

// printOverview gives the operator the pre-run picture: what is being
// imported where, and what resources the run will use
func printOverview(targetDir string, in *input.Input, cfg store.Config) {
	pterm.Printf("loam version: %s\n", version.Version)
	pterm.Printf("Importing the contents of these files into %s:\n", targetDir)
	printInventory("Nodes", in.Nodes)
	printInventory("Relationships", in.Relationships)

	pterm.Println()
	pterm.Println("Available resources:")

	if v, err := mem.VirtualMemory(); err == nil {
		pterm.Printf("  Total machine memory: %s\n", bytesToString(v.Total))
		pterm.Printf("  Free machine memory: %s\n", bytesToString(v.Available))
	}
	pterm.Printf("  Processors: %d\n", cfg.Processors)
	pterm.Printf("  Configured max memory: %s\n", bytesToString(cfg.MaxMemory))
	pterm.Printf("  High-IO: %v\n", cfg.HighIO)
	pterm.Println()
}

// printInventory lists file-sets per group, in processing order
func printInventory(name string, sources []*input.Source) {
	if len(sources) == 0 {
		return
	}
	pterm.Printf("%s:\n", name)

	var lastKey string
	for _, src := range sources {
		if key := src.Group.Key(); key != lastKey {
			pterm.Printf("  %s:\n", key)
			lastKey = key
		}
		for _, f := range src.Files() {
			pterm.Printf("    %s\n", f)
		}
	}
}

func bytesToString(n uint64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2fGiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.2fMiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.2fKiB", float64(n)/kib)
	}
	return fmt.Sprintf("%dB", n)
}
