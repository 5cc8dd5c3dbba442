package orchestrator

import (
	"context"
	"time"
)

// Fixed cadences for the timers that do not come from configuration
// (§4.3's idle sweep and renewal check, and a KEEP_ALIVE cadence); the
// contact and ROUTES_REQUEST cadences are configurable (§4.6, §4.10).
const (
	idleSweepInterval      = 10 * time.Second
	renewCheckInterval     = time.Minute
	keepAliveInterval      = 15 * time.Second
	desiredContactInterval = 30 * time.Second
)

// Run opens the UDP sockets, starts the strand, the UDP and TAP/TUN read
// loops, the rendezvous registrar (if configured), and every periodic
// timer of §4.3/§4.6/§4.10, blocking until ctx is canceled. It returns
// after every started goroutine has exited.
func (c *Core) Run(ctx context.Context) error {
	if err := c.listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.strand.Run(ctx)
	}()

	if c.conn4 != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runUDPReadLoop(c.conn4)
		}()
	}
	if c.conn6 != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runUDPReadLoop(c.conn6)
		}()
	}
	if c.tapHandle != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runTapReadLoop()
		}()
	}

	if c.registrar != nil {
		if err := c.registrar.Start(ctx); err != nil {
			c.log.WithError(err).Warn("failed to start rendezvous registration")
		}
	}

	c.strand.Post(c.connectStaticContacts)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runTimers(ctx)
	}()

	<-ctx.Done()
	// Unblock the UDP/TAP read loops, which are parked in blocking reads
	// and would otherwise never observe ctx being done.
	c.Close()
	c.wg.Wait()

	if c.registrar != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := c.registrar.Stop(stopCtx); err != nil {
			c.log.WithError(err).Warn("failed to unregister from rendezvous server")
		}
	}

	return nil
}

// Shutdown cancels the context passed to Run, causing it to return once
// every goroutine it started has exited.
func (c *Core) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Core) runTimers(ctx context.Context) {
	idle := time.NewTicker(idleSweepInterval)
	defer idle.Stop()
	renew := time.NewTicker(renewCheckInterval)
	defer renew.Stop()
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	contact := time.NewTicker(c.cfg.Server.ContactInterval)
	defer contact.Stop()
	routesRequest := time.NewTicker(c.cfg.Server.RequestInterval)
	defer routesRequest.Stop()
	desiredContact := time.NewTicker(desiredContactInterval)
	defer desiredContact.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			c.strand.Post(c.sweepIdlePeers)
		case <-renew.C:
			c.strand.Post(c.renewSessionsIfNeeded)
		case <-keepAlive.C:
			c.strand.Post(c.sendKeepAlives)
		case <-contact.C:
			c.strand.Post(c.connectStaticContacts)
		case <-routesRequest.C:
			c.strand.Post(c.requestRoutesFromPeers)
		case <-desiredContact.C:
			c.strand.Post(c.requestDesiredContacts)
		}
	}
}
