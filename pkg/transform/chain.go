package transform

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

// Chain is an ordered list of transforms applied one after the other to the same frame.
// An empty chain is the identity.
type Chain []Transform

// NewChain builds a chain, rejecting nil stages.
func NewChain(transforms ...Transform) (Chain, error) {
	chain := make(Chain, 0, len(transforms))

	for i, t := range transforms {
		if t == nil {
			return nil, errors.Wrapf(ErrNilTransform, "stage %d", i)
		}

		chain = append(chain, t)
	}

	return chain, nil
}

// Names lists the stage names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name()
	}

	return names
}

// OutputSize composes the OutputSize of every stage.
func (c Chain) OutputSize(width, height int) (int, int) {
	for _, t := range c {
		width, height = t.OutputSize(width, height)
	}

	return width, height
}

// OutputResolution is OutputSize over a frame.Resolution.
func (c Chain) OutputResolution(res frame.Resolution) frame.Resolution {
	w, h := c.OutputSize(res.Width, res.Height)

	return frame.Resolution{Width: w, Height: h}
}

// Apply runs every stage on in. The first failing stage aborts the chain, no partial frame is
// returned.
func (c Chain) Apply(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	cur := in

	for stage, t := range c {
		if err := ctx.Err(); err != nil {
			return nil, &Failure{Stage: stage, Name: t.Name(), Index: in.Index, Cause: err}
		}

		want := outputResolution(t, cur.Size())

		out, err := t.Apply(ctx, cur)
		if err != nil {
			return nil, &Failure{Stage: stage, Name: t.Name(), Index: in.Index, Cause: err}
		}

		switch {
		case out == nil || out.Image == nil:
			err = ErrNilFrame
		case out.Index != in.Index:
			err = errors.Wrapf(ErrIndexChanged, "got %d", out.Index)
		case out.Size() != want:
			err = errors.Wrapf(ErrSizeMismatch, "announced %s, got %s", want, out.Size())
		}

		if err != nil {
			return nil, &Failure{Stage: stage, Name: t.Name(), Index: in.Index, Cause: err}
		}

		cur = out
	}

	return cur, nil
}

// Replicate returns n chains meant to be used by n concurrent workers. Cloneable stages get one
// instance per chain. Other stages are wrapped once in a Serialized transform shared by every
// chain, so a single instance is never entered by two workers at the same time.
func (c Chain) Replicate(n int) []Chain {
	shared := make(Chain, len(c))

	for i, t := range c {
		if _, ok := t.(Cloner); !ok {
			shared[i] = Serialize(t)
		}
	}

	chains := make([]Chain, n)

	for r := range chains {
		chain := make(Chain, len(c))

		for i, t := range c {
			if cloner, ok := t.(Cloner); ok {
				chain[i] = cloner.Clone()
			} else {
				chain[i] = shared[i]
			}
		}

		chains[r] = chain
	}

	return chains
}
