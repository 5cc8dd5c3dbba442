package rendezvous

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// reregistrationFraction is the fraction of a granted lease's lifetime
// after which Registrar renews it, matching
// `original_source/libs/freelan/src/client.cpp`'s cadence.
const reregistrationFraction = 2.0 / 3.0

// nextReregistration returns how long to wait, from now, before renewing
// a registration granted until expiration. A non-positive or already
// past expiration renews immediately.
func nextReregistration(now, expiration time.Time) time.Duration {
	lifetime := expiration.Sub(now)
	if lifetime <= 0 {
		return 0
	}
	return time.Duration(float64(lifetime) * reregistrationFraction)
}

// Registrar keeps one certificate registered with a rendezvous server,
// renewing at reregistrationFraction of the granted lifetime until Stop
// is called or ctx is canceled.
type Registrar struct {
	Client  *Client
	CertDER []byte
	Log     *logrus.Entry

	cancel context.CancelFunc
	done   chan struct{}
}

func (r *Registrar) log() *logrus.Entry {
	if r.Log != nil {
		return r.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Start registers immediately and begins the renewal loop in a
// background goroutine. Call Stop to end it.
func (r *Registrar) Start(ctx context.Context) error {
	result, err := r.Client.Register(ctx, r.CertDER)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, result.ExpirationTimestamp)
	return nil
}

func (r *Registrar) loop(ctx context.Context, expiration time.Time) {
	defer close(r.done)
	for {
		wait := nextReregistration(time.Now(), expiration)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		result, err := r.Client.Register(ctx, r.CertDER)
		if err != nil {
			r.log().WithError(err).Warn("rendezvous re-registration failed, retrying on next tick")
			expiration = time.Now().Add(wait)
			continue
		}
		expiration = result.ExpirationTimestamp
	}
}

// Stop cancels the renewal loop and waits for it to exit, then
// unregisters the certificate. ctx bounds the unregister call only.
func (r *Registrar) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	return r.Client.Unregister(ctx, r.CertDER)
}
