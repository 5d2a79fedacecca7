package app

import (
	"context"

	"chatd/pkg/shutdown"
)

// Shutdown stops accepting traffic, then stops the chat process.
func (a *App) Shutdown(ctx context.Context) error {
	a.ready.Store(false)
	return shutdown.Run(ctx,
		shutdown.Step{Name: "event_streams", Stop: func(context.Context) error {
			a.hub.Close()
			return nil
		}},
		shutdown.Step{Name: "inflight_requests", Stop: func(context.Context) error {
			a.reqCancel()
			return nil
		}},
		shutdown.Step{Name: "http", Stop: func(ctx context.Context) error {
			done := make(chan error, 1)
			go func() { done <- a.srvFast.Shutdown() }()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		shutdown.Step{Name: "probe", Stop: func(context.Context) error {
			if a.probeCancel != nil {
				a.probeCancel()
			}
			return nil
		}},
		shutdown.Step{Name: "rate_limiter", Stop: func(context.Context) error {
			a.deliver.Shutdown()
			return nil
		}},
		shutdown.Step{Name: "processes", Stop: func(ctx context.Context) error {
			if a.procCancel != nil {
				a.procCancel()
			}
			done := make(chan struct{})
			go func() {
				a.node.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
	)
}
