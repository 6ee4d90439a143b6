package mapper

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run is the convenience worker-thread wrapper of spec.md §5: "a tight
// loop calling poll with a 100-ms blocking window; that worker thread
// owns the device for its lifetime." Cancelling ctx stops the loop and
// Run returns ctx.Err(). drain has the same meaning as in Poll.
func (d *Device) Run(ctx context.Context, drain func(max int) int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(d.Cfg.PollBlockMax)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				if _, err := d.Poll(now, drain); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
