package main

import (
	"context"
	"math/rand"
	"os"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/sys/cpu"

	"github.com/samcharles93/transducer/internal/logger"
	"github.com/samcharles93/transducer/internal/transducer"
)

type benchReport struct {
	RunID     string          `json:"run_id"`
	GoVersion string          `json:"go_version"`
	GoOS      string          `json:"go_os"`
	GoArch    string          `json:"go_arch"`
	CPUs      int             `json:"cpus"`
	Features  map[string]bool `json:"features"`

	BatchSize  int    `json:"batch_size"`
	MaxSrcLen  int    `json:"max_src_len"`
	MaxTgtLen  int    `json:"max_tgt_len"`
	NumTargets int    `json:"num_targets"`
	Backend    string `json:"backend"`
	Workers    int    `json:"workers"`

	Runs      []time.Duration `json:"runs_ns"`
	MeanNS    int64           `json:"mean_ns"`
	CellsPerS float64         `json:"cells_per_second"`
}

func hostFeatures() map[string]bool {
	return map[string]bool{
		"SSE41":      cpu.X86.HasSSE41,
		"AVX":        cpu.X86.HasAVX,
		"AVX2":       cpu.X86.HasAVX2,
		"FMA":        cpu.X86.HasFMA,
		"AVX512F":    cpu.X86.HasAVX512F,
		"AVX512VNNI": cpu.X86.HasAVX512VNNI,
		"ASIMD":      cpu.ARM64.HasASIMD,
		"FPHP":       cpu.ARM64.HasFPHP,
	}
}

func benchCmd() *cli.Command {
	var (
		batchSize  int64
		maxSrcLen  int64
		maxTgtLen  int64
		numTargets int64
		warmupRuns int64
		benchRuns  int64
		seed       int64
	)

	flags := append([]cli.Flag{}, commonEngineFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "batch",
			Aliases:     []string{"b"},
			Usage:       "batch size",
			Value:       16,
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "max-src-len",
			Aliases:     []string{"T"},
			Usage:       "padded source length",
			Value:       128,
			Destination: &maxSrcLen,
		},
		&cli.Int64Flag{
			Name:        "max-tgt-len",
			Aliases:     []string{"U"},
			Usage:       "padded target length",
			Value:       32,
			Destination: &maxTgtLen,
		},
		&cli.Int64Flag{
			Name:        "num-targets",
			Aliases:     []string{"D"},
			Usage:       "vocabulary size",
			Value:       512,
			Destination: &numTargets,
		},
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup runs",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "number of benchmark runs",
			Value:       3,
			Destination: &benchRuns,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed",
			Value:       1,
			Destination: &seed,
		},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark the loss engine on a random batch",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyEngineConfig(cmd, LoadConfig())
			ctx = loggerContext(ctx)
			log := logger.FromContext(ctx)

			opts := transducer.Options{
				BatchSize:       int(batchSize),
				MaxSrcLen:       int(maxSrcLen),
				MaxTgtLen:       int(maxTgtLen),
				NumTargets:      int(numTargets),
				Blank:           0,
				FusedLogSoftmax: true,
				Workers:         int(workers),
				Backend:         parseBackend(backendName),
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(seed))
			b, t, u, d := opts.BatchSize, opts.MaxSrcLen, opts.MaxTgtLen, opts.NumTargets
			logits := make([]float32, b*t*u*d)
			for i := range logits {
				logits[i] = rng.Float32()*2 - 1
			}
			targets := make([]int32, b*(u-1))
			for i := range targets {
				targets[i] = int32(1 + rng.Intn(d-1))
			}
			srcLengths := make([]int32, b)
			tgtLengths := make([]int32, b)
			for i := 0; i < b; i++ {
				srcLengths[i] = int32(t)
				tgtLengths[i] = int32(u - 1)
			}
			costs := make([]float32, b)
			gradients := make([]float32, len(logits))
			ws, err := transducer.AllocWorkspace(opts)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			log.Info("starting benchmark", "run_id", runID, "backend", backendName)

			run := func() (time.Duration, error) {
				start := time.Now()
				status := transducer.Compute(opts, ws, logits, targets, srcLengths, tgtLengths, costs, gradients, nil)
				if err := status.Err(); err != nil {
					return 0, err
				}
				return time.Since(start), nil
			}
			for i := int64(0); i < warmupRuns; i++ {
				if _, err := run(); err != nil {
					return err
				}
			}
			durations := make([]time.Duration, 0, benchRuns)
			var total time.Duration
			for i := int64(0); i < benchRuns; i++ {
				elapsed, err := run()
				if err != nil {
					return err
				}
				durations = append(durations, elapsed)
				total += elapsed
			}
			mean := total / time.Duration(benchRuns)
			cells := float64(b * t * u)

			report := benchReport{
				RunID:      runID,
				GoVersion:  runtime.Version(),
				GoOS:       runtime.GOOS,
				GoArch:     runtime.GOARCH,
				CPUs:       runtime.NumCPU(),
				Features:   hostFeatures(),
				BatchSize:  b,
				MaxSrcLen:  t,
				MaxTgtLen:  u,
				NumTargets: d,
				Backend:    backendName,
				Workers:    int(workers),
				Runs:       durations,
				MeanNS:     mean.Nanoseconds(),
				CellsPerS:  cells / mean.Seconds(),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
