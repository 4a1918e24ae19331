package remote

import (
	"context"

	"golang.org/x/sync/singleflight"
)

const busyKey = "is_busy"

type coalescingClient struct {
	Client
	group singleflight.Group
}

// Coalesce wraps c so that concurrent IsBusy probes share one in-flight call.
// A caller whose context ends stops waiting; the shared probe keeps running
// for the others.
func Coalesce(c Client) Client {
	if cc, ok := c.(*coalescingClient); ok {
		return cc
	}
	return &coalescingClient{Client: c}
}

func (c *coalescingClient) IsBusy(ctx context.Context) (bool, error) {
	ch := c.group.DoChan(busyKey, func() (any, error) {
		return c.Client.IsBusy(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
