// cmaps-bench measures container throughput across a grid of goroutine
// counts and read ratios and writes a JSON report.
//
// Usage:
//
//	cmaps-bench [flags]
//
// Flags:
//
//	--engines        Engines to benchmark: lockfree,waitfree (default both)
//	--goroutines     Comma-separated goroutine counts (default 1,4,8)
//	--read-ratios    Comma-separated read percentages (default 50,90,99)
//	--keys           Key-space size per run (default 100000)
//	--duration       Measurement window per cell (default 2s)
//	--out            Report path (default .benchmarks/cmaps.json)
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	natomic "github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/cmaps/pkg/cmap"
	"github.com/calvinalkan/cmaps/pkg/smr"
)

// Config holds all benchmark configuration.
type Config struct {
	Engines    []string
	Goroutines []int
	ReadRatios []int
	Keys       int
	Duration   time.Duration
	Out        string
}

// CellResult is one grid cell of the report.
type CellResult struct {
	Engine     string  `json:"engine"`
	Goroutines int     `json:"goroutines"`
	ReadRatio  int     `json:"read_ratio"`
	Ops        uint64  `json:"ops"`
	OpsPerSec  float64 `json:"ops_per_sec"`
	Duration   string  `json:"duration"`
}

// Report is the JSON document cmaps-bench writes.
type Report struct {
	Started   time.Time    `json:"started"`
	Keys      int          `json:"keys"`
	UserCPU   string       `json:"user_cpu"`
	SystemCPU string       `json:"system_cpu"`
	MaxRSSKiB int64        `json:"max_rss_kib"`
	Cells     []CellResult `json:"cells"`
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	report := Report{Started: time.Now(), Keys: cfg.Keys}

	var beforeUsage unix.Rusage

	_ = unix.Getrusage(unix.RUSAGE_SELF, &beforeUsage)

	for _, engine := range cfg.Engines {
		for _, g := range cfg.Goroutines {
			for _, ratio := range cfg.ReadRatios {
				cell := runCell(cfg, engine, g, ratio)
				report.Cells = append(report.Cells, cell)

				fmt.Printf("%-8s g=%-3d read=%2d%%  %12.0f ops/s\n",
					engine, g, ratio, cell.OpsPerSec)
			}
		}
	}

	var afterUsage unix.Rusage

	_ = unix.Getrusage(unix.RUSAGE_SELF, &afterUsage)

	report.UserCPU = usageDelta(beforeUsage.Utime, afterUsage.Utime).String()
	report.SystemCPU = usageDelta(beforeUsage.Stime, afterUsage.Stime).String()
	report.MaxRSSKiB = afterUsage.Maxrss

	return writeReport(cfg.Out, report)
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("cmaps-bench", flag.ContinueOnError)

	engines := fs.String("engines", "lockfree,waitfree", "engines to benchmark")
	goroutines := fs.String("goroutines", "1,4,8", "goroutine counts")
	ratios := fs.String("read-ratios", "50,90,99", "read percentages")
	keys := fs.Int("keys", 100_000, "key-space size per run")
	duration := fs.Duration("duration", 2*time.Second, "measurement window per cell")
	out := fs.String("out", filepath.Join(".benchmarks", "cmaps.json"), "report path")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Engines:  strings.Split(*engines, ","),
		Keys:     *keys,
		Duration: *duration,
		Out:      *out,
	}

	for _, e := range cfg.Engines {
		if e != "lockfree" && e != "waitfree" {
			return Config{}, fmt.Errorf("unknown engine %q", e)
		}
	}

	var err error

	cfg.Goroutines, err = parseInts(*goroutines)
	if err != nil {
		return Config{}, fmt.Errorf("parse --goroutines: %w", err)
	}

	cfg.ReadRatios, err = parseInts(*ratios)
	if err != nil {
		return Config{}, fmt.Errorf("parse --read-ratios: %w", err)
	}

	if cfg.Keys < 1 {
		return Config{}, errors.New("--keys must be positive")
	}

	return cfg, nil
}

func parseInts(csv string) ([]int, error) {
	var out []int

	for _, part := range strings.Split(csv, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		if n < 1 {
			return nil, fmt.Errorf("value %d must be positive", n)
		}

		out = append(out, n)
	}

	return out, nil
}

// runCell measures one (engine, goroutines, read ratio) combination.
func runCell(cfg Config, engine string, goroutines, readRatio int) CellResult {
	dom := smr.NewDomainSlots(smr.DefaultSlots)
	m := cmap.NewMapOptions[int, int](cmap.Ints[int](), cmap.Options{
		Domain:   dom,
		WaitFree: engine == "waitfree",
		Capacity: uint64(cfg.Keys),
	})

	// Preload half the key space so reads hit and miss.
	for i := 0; i < cfg.Keys; i += 2 {
		m.Put(i, i)
	}

	var (
		ops   atomic.Uint64
		stop  atomic.Bool
		wg    sync.WaitGroup
		start = make(chan struct{})
	)

	for g := range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(g) + 1))
			local := uint64(0)

			<-start

			for !stop.Load() {
				k := rng.Intn(cfg.Keys)

				if rng.Intn(100) < readRatio {
					m.Get(k)
				} else {
					m.Put(k, k)
				}

				local++
			}

			ops.Add(local)
		}()
	}

	close(start)
	time.Sleep(cfg.Duration)
	stop.Store(true)
	wg.Wait()

	total := ops.Load()

	return CellResult{
		Engine:     engine,
		Goroutines: goroutines,
		ReadRatio:  readRatio,
		Ops:        total,
		OpsPerSec:  float64(total) / cfg.Duration.Seconds(),
		Duration:   cfg.Duration.String(),
	}
}

func usageDelta(before, after unix.Timeval) time.Duration {
	b := time.Duration(before.Sec)*time.Second + time.Duration(before.Usec)*time.Microsecond
	a := time.Duration(after.Sec)*time.Second + time.Duration(after.Usec)*time.Microsecond

	return a - b
}

// writeReport writes the report atomically so a concurrent reader never
// sees a torn file.
func writeReport(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := natomic.WriteFile(path, strings.NewReader(string(data)+"\n")); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Printf("report written to %s\n", path)

	return nil
}
