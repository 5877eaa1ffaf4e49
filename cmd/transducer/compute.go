package main

import (
	"context"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/transducer/internal/api"
	"github.com/samcharles93/transducer/internal/logger"
	"github.com/samcharles93/transducer/internal/transducer"
)

func computeCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
		gradients  bool
	)

	flags := append([]cli.Flag{}, commonEngineFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "path to JSON batch file",
			Required:    true,
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "path to write results (default stdout)",
			Destination: &outputPath,
		},
		&cli.BoolFlag{
			Name:        "gradients",
			Aliases:     []string{"g"},
			Usage:       "compute gradients alongside costs",
			Destination: &gradients,
		},
	)

	return &cli.Command{
		Name:  "compute",
		Usage: "Compute losses for a JSON batch file",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyEngineConfig(cmd, LoadConfig())
			ctx = loggerContext(ctx)
			log := logger.FromContext(ctx)

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading batch: %w", err)
			}
			var req api.LossRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decoding batch: %w", err)
			}
			if gradients {
				req.WithGradients = true
			}

			service := &api.LossService{
				Workers: int(workers),
				Backend: parseBackend(backendName),
			}
			start := time.Now()
			result, err := service.Compute(&req)
			if err != nil {
				return err
			}
			log.Info("computed batch",
				"samples", req.BatchSize,
				"elapsed", time.Since(start),
			)

			out := os.Stdout
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"costs":     result.Costs,
				"gradients": result.Gradients,
			})
		},
	}
}

func parseBackend(name string) transducer.BackendKind {
	if name == "wavefront" {
		return transducer.BackendWavefront
	}
	return transducer.BackendPool
}
