package progress

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// Log reports progress through the logger carried by ctx.
func Log(name string) Reporter {
	return ReporterFunc(func(ctx context.Context, p Progress) {
		if p.Final {
			logger.Infof(ctx, "%s: %s frames committed in %s (%s fps)", name,
				humanize.Comma(int64(p.Committed)), p.Elapsed.Round(time.Millisecond), humanize.FtoaWithDigits(p.Rate(), 2))

			return
		}

		logger.Infof(ctx, "%s: %s/%s frames (%s%%), %s fps, eta %s", name,
			humanize.Comma(int64(p.Committed)), humanize.Comma(int64(p.Total)),
			humanize.FtoaWithDigits(p.Percent(), 1), humanize.FtoaWithDigits(p.Rate(), 2), p.ETA().Round(time.Second))
	})
}
