// Command timecoder-lutgen builds and stores the lookup tables for
// one or all registered MK2 timecode definitions, so a long LUT build
// doesn't have to happen on a decoder's first real-time sample.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/xwax-go/timecoder/timecoder"
)

// buildConfig optionally overrides which definitions to build and
// whether to keep reading the original header-less LUT format, loaded
// from a YAML file via --config.
type buildConfig struct {
	Definitions       []string `yaml:"definitions"`
	AllowLegacyFormat bool     `yaml:"allow_legacy_format"`
}

func main() {
	var (
		all        = pflag.BoolP("all", "a", false, "build every registered MK2 definition")
		name       = pflag.StringP("definition", "d", "", "build a single definition by name")
		configPath = pflag.StringP("config", "c", "", "YAML file listing definitions to build")
		legacy     = pflag.Bool("legacy-format", false, "allow reading pre-existing LUTs in the original header-less format")
		verbose    = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "timecoder-lutgen"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	timecoder.SetLogger(logger)

	cfg := buildConfig{AllowLegacyFormat: *legacy}
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			logger.Fatal("open config", "error", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			logger.Fatal("parse config", "error", err)
		}
	}

	names := cfg.Definitions
	switch {
	case *name != "":
		names = []string{*name}
	case *all || len(names) == 0:
		names = nil
		for _, d := range timecoder.Definitions() {
			if d.IsMK2() {
				names = append(names, d.Name)
			}
		}
	}

	persist := &timecoder.DiskPersister{AllowLegacyFormat: cfg.AllowLegacyFormat}

	var failed int
	for _, n := range names {
		start := time.Now()
		def, err := timecoder.FindDefinition(n, persist)
		if err != nil {
			logger.Error("build failed", "name", n, "error", err)
			failed++
			continue
		}
		fmt.Printf("%-20s bits=%-3d resolution=%-5d built in %s\n", def.Name, def.Bits, def.Resolution, time.Since(start).Round(time.Millisecond))
	}

	if failed > 0 {
		os.Exit(1)
	}
}
