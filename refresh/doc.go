/*
Package refresh keeps a periodically rebuilt value fresh without blocking its
readers.

A Coordinator moves through three states:

	Uninitialized -> Ready <-> Refreshing

Init performs the first build synchronously; until it succeeds there is nothing
to read. Each later cycle fetches a complete new value and publishes it with a
single atomic pointer swap. Readers call Current once per operation and keep the
version they got, so no reader ever sees a mix of two cycles.

Only one cycle runs per coordinator. Refresh is a no-op while a cycle is
running; ForceRefresh joins the running cycle and waits for its result. A failed
cycle leaves the previous version in place, and after DegradedThreshold failures
in a row Health reports the coordinator as degraded.

	c := refresh.New("subway", fetchIndex,
	    refresh.WithInterval(time.Minute),
	    refresh.WithLogger(logger),
	)
	if err := c.Init(ctx); err != nil {
	    return err
	}
	c.Start(ctx)
	defer c.Stop()

	if v := c.Current(); v != nil {
	    use(v.Value)
	}
*/
package refresh
