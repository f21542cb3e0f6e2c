package transform

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kind names a transform variant.
type Kind string

const (
	KindIdentity   Kind = "identity"
	KindResize     Kind = "resize"
	KindSharpen    Kind = "sharpen"
	KindDenoise    Kind = "denoise"
	KindWaifu2x    Kind = "waifu2x"
	KindRealESRGAN Kind = "realesrgan"
	KindSRMD       Kind = "srmd"
)

// Kinds lists every buildable variant.
func Kinds() []Kind {
	return []Kind{KindIdentity, KindResize, KindSharpen, KindDenoise, KindWaifu2x, KindRealESRGAN, KindSRMD}
}

// Spec is the configuration of one stage: its kind and the options of that kind's config struct.
//
// In a YAML chain file:
//
//	- kind: waifu2x
//	  options: {scale: 2, noise: 1}
type Spec struct {
	Kind    Kind      `yaml:"kind"`
	Options yaml.Node `yaml:"options,omitempty"`
}

// ParseSpec parses the command line form "kind[:key=value,...]", e.g. "realesrgan:scale=4".
func ParseSpec(raw string) (Spec, error) {
	kind, params, _ := strings.Cut(strings.TrimSpace(raw), ":")

	spec := Spec{Kind: Kind(strings.ToLower(strings.TrimSpace(kind)))}
	if spec.Kind == "" {
		return Spec{}, errors.Wrapf(ErrUnknownKind, "empty kind in %q", raw)
	}

	if strings.TrimSpace(params) == "" {
		return spec, nil
	}

	pairs := strings.Split(params, ",")
	entries := make([]string, 0, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return Spec{}, errors.Wrapf(ErrInvalidOption, "expected key=value, got %q", pair)
		}

		entries = append(entries, key+": "+strings.TrimSpace(value))
	}

	err := yaml.Unmarshal([]byte("{"+strings.Join(entries, ", ")+"}"), &spec.Options)
	if err != nil {
		return Spec{}, errors.Wrapf(ErrInvalidOption, "unable to parse options of %q: %v", raw, err)
	}

	return spec, nil
}

// Build decodes the options into the kind's typed config and constructs the transform.
func (s Spec) Build() (Transform, error) {
	switch s.Kind {
	case KindIdentity, KindSharpen:
		err := s.decode(&struct{}{})
		if err != nil {
			return nil, err
		}

		if s.Kind == KindSharpen {
			return Sharpen{}, nil
		}

		return Identity{}, nil
	case KindResize:
		var cfg ResizeConfig

		return build(s, &cfg, NewResize)
	case KindDenoise:
		var cfg DenoiseConfig

		return build(s, &cfg, NewDenoise)
	case KindWaifu2x:
		var cfg Waifu2xConfig

		return build(s, &cfg, NewWaifu2x)
	case KindRealESRGAN:
		var cfg RealESRGANConfig

		return build(s, &cfg, NewRealESRGAN)
	case KindSRMD:
		var cfg SRMDConfig

		return build(s, &cfg, NewSRMD)
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q (known: %v)", s.Kind, Kinds())
	}
}

func build[C any, T Transform](spec Spec, cfg *C, newFn func(C) (T, error)) (Transform, error) {
	err := spec.decode(cfg)
	if err != nil {
		return nil, err
	}

	t, err := newFn(*cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to build %s", spec.Kind)
	}

	return t, nil
}

// decode rejects option keys the config struct does not declare.
func (s Spec) decode(out any) error {
	if s.Options.Kind == 0 {
		return nil
	}

	raw, err := yaml.Marshal(&s.Options)
	if err != nil {
		return errors.Wrapf(err, "unable to read %s options", s.Kind)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	err = dec.Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(ErrInvalidOption, "%s options: %v", s.Kind, err)
	}

	return nil
}

// BuildChain builds every spec in order.
func BuildChain(specs []Spec) (Chain, error) {
	transforms := make([]Transform, 0, len(specs))

	for i, spec := range specs {
		t, err := spec.Build()
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d", i)
		}

		transforms = append(transforms, t)
	}

	return NewChain(transforms...)
}
