package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-upscalin/internal/config"
	"github.com/askiada/go-upscalin/pkg/transform"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		value, ok := values[name]

		return value, ok
	}
}

func writeChain(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, _, err := config.Load([]string{"-i", "clip.mp4", "-u", "waifu2x:scale=2"}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "clip.mp4", cfg.Input)
	assert.Equal(t, config.DefaultWorkers, cfg.Workers)
	assert.Zero(t, cfg.Window)
	assert.Equal(t, 100*time.Millisecond, cfg.ProgressInterval)
	assert.Equal(t, "ffmpeg", cfg.FFmpeg)
	assert.Equal(t, "ffprobe", cfg.FFprobe)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 18, cfg.Encoder.CRF)

	specs, err := cfg.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, transform.KindWaifu2x, specs[0].Kind)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Parallel()

	lookup := env(map[string]string{
		config.EnvWorkers: "3",
		config.EnvWindow:  "9",
		config.EnvFFmpeg:  "/opt/ffmpeg",
		config.EnvFFprobe: "",
	})

	cfg, _, err := config.Load([]string{"-t", "4", "-u", "identity", "-u", "resize:scale=2", "--log-level", "debug", "in.png"}, lookup)
	require.NoError(t, err)

	assert.Equal(t, "in.png", cfg.Input)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 9, cfg.Window)
	assert.Equal(t, "/opt/ffmpeg", cfg.FFmpeg)
	assert.Equal(t, "ffprobe", cfg.FFprobe)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"identity", "resize:scale=2"}, cfg.Upscalers)
}

func TestLoadChainFile(t *testing.T) {
	t.Parallel()

	path := writeChain(t, `
workers: 7
window: 20
chain:
  - kind: realesrgan
    options: {scale: 4}
  - kind: sharpen
encoder:
  crf: 23
  preset: medium
`)

	cfg, _, err := config.Load([]string{"-i", "in.mp4", "--chain", path, "-u", "resize:scale=0.5"}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, 20, cfg.Window)
	assert.Equal(t, 23, cfg.Encoder.CRF)
	assert.Equal(t, "medium", cfg.Encoder.Preset)
	assert.Equal(t, "libx264", cfg.Encoder.Codec)

	specs, err := cfg.Specs()
	require.NoError(t, err)

	kinds := []transform.Kind{}
	for _, spec := range specs {
		kinds = append(kinds, spec.Kind)
	}

	assert.Equal(t, []transform.Kind{transform.KindRealESRGAN, transform.KindSharpen, transform.KindResize}, kinds)

	chain, err := transform.BuildChain(specs)
	require.NoError(t, err)
	assert.Equal(t, []string{"realesrgan(x4, realesrgan-x4plus)", "sharpen", "resize(x0.5, lanczos)"}, chain.Names())
}

func TestLoadFlagsOverrideChainFile(t *testing.T) {
	t.Parallel()

	path := writeChain(t, "workers: 7\nwindow: 20\nchain: [{kind: identity}]\n")

	cfg, _, err := config.Load([]string{"-i", "in.mp4", "--chain", path, "-t", "2", "--window", "4"}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 4, cfg.Window)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args    []string
		env     map[string]string
		wantErr error
	}{
		"no input": {
			args:    []string{"-u", "identity"},
			wantErr: config.ErrNoInput,
		},
		"no transforms": {
			args:    []string{"-i", "in.png"},
			wantErr: config.ErrNoTransforms,
		},
		"zero workers": {
			args:    []string{"-i", "in.png", "-u", "identity", "-t", "0"},
			wantErr: config.ErrInvalid,
		},
		"window too small": {
			args:    []string{"-i", "in.png", "-u", "identity", "-t", "4", "--window", "2"},
			wantErr: config.ErrInvalid,
		},
		"negative interval": {
			args:    []string{"-i", "in.png", "-u", "identity", "--progress-interval", "-1s"},
			wantErr: config.ErrInvalid,
		},
		"bad env": {
			args:    []string{"-i", "in.png", "-u", "identity"},
			env:     map[string]string{config.EnvWorkers: "many"},
			wantErr: config.ErrInvalid,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, _, err := config.Load(tc.args, env(tc.env))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadInvalidChainFile(t *testing.T) {
	t.Parallel()

	path := writeChain(t, "chain: {not: a list}\n")

	_, _, err := config.Load([]string{"-i", "in.mp4", "--chain", path}, env(nil))
	require.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = config.Load([]string{"-i", "in.mp4", "--chain", filepath.Join(t.TempDir(), "missing.yaml")}, env(nil))
	require.Error(t, err)
}

func TestLoadUnknownFlag(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load([]string{"--nope"}, env(nil))
	require.Error(t, err)
}

func TestSpecsInvalid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Upscalers = []string{"waifu2x:scale"}

	_, err := cfg.Specs()
	require.ErrorIs(t, err, transform.ErrInvalidOption)
}
