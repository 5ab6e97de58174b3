package blobdev

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Prefetch fetches the given blocks concurrently and discards the data.
// It warms transport and store-side caches ahead of sequential reads and
// surfaces integrity errors early. Fan-out is bounded by the attached
// resource controller's worker budget.
//
// The first error cancels the remaining fetches.
func (d *Device) Prefetch(ctx context.Context, addrs []uint64) error {
	if len(addrs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if d.rc != nil {
		g.SetLimit(d.rc.Workers())
	}

	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			p := make([]byte, d.blockSize)
			_, err := d.ReadBlockContext(ctx, addr, p)
			if err != nil {
				d.logger.WithAddr(addr).Debug("prefetch failed", "error", err)
			}
			return err
		})
	}
	return g.Wait()
}
