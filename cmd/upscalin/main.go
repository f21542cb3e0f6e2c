// Command upscalin upscales images, GIFs and videos through a chain of upscalers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/askiada/go-upscalin/internal/config"
	"github.com/askiada/go-upscalin/pkg/pipeline/drawer"
	"github.com/askiada/go-upscalin/pkg/pipeline/measure"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
	"github.com/askiada/go-upscalin/pkg/transform"
	"github.com/askiada/go-upscalin/pkg/upscaler"
)

func main() {
	cfg, fs, err := config.Load(os.Args[1:], os.LookupEnv)
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "upscalin: %v\n", err)

		if fs != nil {
			fs.PrintDefaults()
		}

		fmt.Fprintf(os.Stderr, "\nupscaler kinds: %s\n", kinds())
		os.Exit(2)
	}

	l := logrus.Default().WithLevel(cfg.LogLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	failed, err := run(ctx, cfg)

	stop()
	belt.Flush(ctx)

	if err != nil {
		l.Error(err)
		os.Exit(1)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func kinds() string {
	names := []string{}
	for _, kind := range transform.Kinds() {
		names = append(names, string(kind))
	}

	return strings.Join(names, ", ")
}

func run(ctx context.Context, cfg config.Config) (int, error) {
	specs, err := cfg.Specs()
	if err != nil {
		return 0, err
	}

	chain, err := transform.BuildChain(specs)
	if err != nil {
		return 0, err
	}

	ucfg := upscaler.Config{
		Workers:          cfg.Workers,
		Window:           cfg.Window,
		ProgressInterval: cfg.ProgressInterval,
		FFmpeg:           cfg.FFmpeg,
		FFprobe:          cfg.FFprobe,
		Encoder:          cfg.Encoder,
	}

	if cfg.Graph != "" {
		ucfg.PipelineOptions = graphOptions(ctx, cfg)
	}

	ups, err := upscaler.New(ucfg, chain...)
	if err != nil {
		return 0, err
	}

	logger.Infof(ctx, "chain %s, %d workers", strings.Join(ups.Chain().Names(), " > "), cfg.Workers)

	results, err := ups.UpscalePath(ctx, cfg.Input, cfg.Output)

	failed := 0

	for _, res := range results {
		if res.Err != nil {
			failed++

			logger.Errorf(ctx, "%s: %s after %d frames: %v", res.Input, res.State, res.Frames, res.Err)

			continue
		}

		logger.Infof(ctx, "%s: %s, %d frames at %s written to %s", res.Input, res.State, res.Frames, res.Resolution, res.Output)
	}

	return failed, err
}

// graphOptions draws the measured pipeline of every streamed input. With a directory input, each
// graph goes to its own file named after the input.
func graphOptions(ctx context.Context, cfg config.Config) func(input string) ([]model.PipelineOption, error) {
	stat, err := os.Stat(cfg.Input)
	perInput := err == nil && stat.IsDir()

	return func(input string) ([]model.PipelineOption, error) {
		path := cfg.Graph
		if perInput {
			ext := filepath.Ext(path)
			stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			path = strings.TrimSuffix(path, ext) + "-" + stem + ext
		}

		logger.Debugf(ctx, "pipeline graph of %s goes to %s", input, path)

		msr := measure.NewDefaultMeasure()

		return []model.PipelineOption{
			measure.PipelineMeasure(msr),
			drawer.PipelineDrawer(drawer.NewDOTDrawer(path), msr),
		}, nil
	}
}
