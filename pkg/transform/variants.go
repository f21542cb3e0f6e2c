package transform

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

// Waifu2xConfig configures waifu2x-ncnn-vulkan.
type Waifu2xConfig struct {
	Binary   string `yaml:"binary"`
	Model    string `yaml:"model"`
	TempDir  string `yaml:"temp_dir"`
	Scale    int    `yaml:"scale"`
	Noise    int    `yaml:"noise"`
	TileSize int    `yaml:"tile_size"`
	GPU      *int   `yaml:"gpu"`
}

var waifu2xScales = []int{1, 2, 4, 8, 16, 32}

func (c *Waifu2xConfig) setDefaults() {
	if c.Binary == "" {
		c.Binary = "waifu2x-ncnn-vulkan"
	}

	if c.Scale == 0 {
		c.Scale = 2
	}
}

// Validate checks the scale and noise level.
func (c Waifu2xConfig) Validate() error {
	if !slices.Contains(waifu2xScales, c.Scale) {
		return errors.Wrapf(ErrInvalidOption, "waifu2x scale %d not in %v", c.Scale, waifu2xScales)
	}

	if c.Noise < -1 || c.Noise > 3 {
		return errors.Wrapf(ErrInvalidOption, "waifu2x noise %d out of [-1, 3]", c.Noise)
	}

	return validateCommon(c.TileSize, c.GPU)
}

// NewWaifu2x validates cfg and builds the stage.
func NewWaifu2x(cfg Waifu2xConfig) (*External, error) {
	cfg.setDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	args := []string{"-i", inputPlaceholder, "-o", outputPlaceholder, "-s", strconv.Itoa(cfg.Scale), "-n", strconv.Itoa(cfg.Noise)}
	if cfg.Model != "" {
		args = append(args, "-m", cfg.Model)
	}

	args = appendCommon(args, cfg.TileSize, cfg.GPU)
	name := fmt.Sprintf("waifu2x(x%d, noise %d)", cfg.Scale, cfg.Noise)

	ext, err := NewExternal(name, cfg.Binary, cfg.Scale, args...)
	if err != nil {
		return nil, err
	}

	return ext.WithTempDir(cfg.TempDir), nil
}

// RealESRGANConfig configures realesrgan-ncnn-vulkan.
type RealESRGANConfig struct {
	Binary   string `yaml:"binary"`
	Model    string `yaml:"model"`
	TempDir  string `yaml:"temp_dir"`
	Scale    int    `yaml:"scale"`
	TileSize int    `yaml:"tile_size"`
	GPU      *int   `yaml:"gpu"`
}

var realESRGANScales = []int{2, 3, 4}

// realESRGANFixedScale matches models trained for one scale only, e.g. realesrgan-x4plus.
var realESRGANFixedScale = regexp.MustCompile(`-x(\d+)plus`)

func (c *RealESRGANConfig) setDefaults() {
	if c.Binary == "" {
		c.Binary = "realesrgan-ncnn-vulkan"
	}

	if c.Scale == 0 {
		c.Scale = 4
	}

	if c.Model == "" {
		c.Model = "realesrgan-x4plus"
	}
}

// Validate checks the scale.
func (c RealESRGANConfig) Validate() error {
	if !slices.Contains(realESRGANScales, c.Scale) {
		return errors.Wrapf(ErrInvalidOption, "realesrgan scale %d not in %v", c.Scale, realESRGANScales)
	}

	if match := realESRGANFixedScale.FindStringSubmatch(c.Model); match != nil && match[1] != strconv.Itoa(c.Scale) {
		return errors.Wrapf(ErrInvalidOption, "realesrgan model %s only upscales x%s, got scale %d", c.Model, match[1], c.Scale)
	}

	return validateCommon(c.TileSize, c.GPU)
}

// NewRealESRGAN validates cfg and builds the stage.
func NewRealESRGAN(cfg RealESRGANConfig) (*External, error) {
	cfg.setDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	args := []string{"-i", inputPlaceholder, "-o", outputPlaceholder, "-s", strconv.Itoa(cfg.Scale), "-n", cfg.Model}
	args = appendCommon(args, cfg.TileSize, cfg.GPU)
	name := fmt.Sprintf("realesrgan(x%d, %s)", cfg.Scale, cfg.Model)

	ext, err := NewExternal(name, cfg.Binary, cfg.Scale, args...)
	if err != nil {
		return nil, err
	}

	return ext.WithTempDir(cfg.TempDir), nil
}

// SRMDConfig configures srmd-ncnn-vulkan.
type SRMDConfig struct {
	Binary   string `yaml:"binary"`
	TempDir  string `yaml:"temp_dir"`
	Scale    int    `yaml:"scale"`
	Noise    int    `yaml:"noise"`
	TileSize int    `yaml:"tile_size"`
	GPU      *int   `yaml:"gpu"`
}

var srmdScales = []int{2, 3, 4}

func (c *SRMDConfig) setDefaults() {
	if c.Binary == "" {
		c.Binary = "srmd-ncnn-vulkan"
	}

	if c.Scale == 0 {
		c.Scale = 2
	}
}

// Validate checks the scale and noise level.
func (c SRMDConfig) Validate() error {
	if !slices.Contains(srmdScales, c.Scale) {
		return errors.Wrapf(ErrInvalidOption, "srmd scale %d not in %v", c.Scale, srmdScales)
	}

	if c.Noise < -1 || c.Noise > 10 {
		return errors.Wrapf(ErrInvalidOption, "srmd noise %d out of [-1, 10]", c.Noise)
	}

	return validateCommon(c.TileSize, c.GPU)
}

// NewSRMD validates cfg and builds the stage.
func NewSRMD(cfg SRMDConfig) (*External, error) {
	cfg.setDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	args := []string{"-i", inputPlaceholder, "-o", outputPlaceholder, "-s", strconv.Itoa(cfg.Scale), "-n", strconv.Itoa(cfg.Noise)}
	args = appendCommon(args, cfg.TileSize, cfg.GPU)
	name := fmt.Sprintf("srmd(x%d, noise %d)", cfg.Scale, cfg.Noise)

	ext, err := NewExternal(name, cfg.Binary, cfg.Scale, args...)
	if err != nil {
		return nil, err
	}

	return ext.WithTempDir(cfg.TempDir), nil
}

func validateCommon(tileSize int, gpu *int) error {
	if tileSize < 0 {
		return errors.Wrapf(ErrInvalidOption, "tile size %d must not be negative", tileSize)
	}

	if gpu != nil && *gpu < -1 {
		return errors.Wrapf(ErrInvalidOption, "gpu id %d must be -1 (cpu) or a device index", *gpu)
	}

	return nil
}

func appendCommon(args []string, tileSize int, gpu *int) []string {
	if tileSize > 0 {
		args = append(args, "-t", strconv.Itoa(tileSize))
	}

	if gpu != nil {
		args = append(args, "-g", strconv.Itoa(*gpu))
	}

	return args
}
