// Package service keeps a gateway running for the lifetime of the process.
//
// Service wraps anything implementing Gateway, normally *gateway.Supervisor,
// and drives it from a single event loop:
//
//	Do(ctx)
//	  |-- Start(ctx, false) -- failure ---------------> Stop, return error
//	  |-- scheduler.Start (optional cron restart)
//	  '-- loop
//	        <-ctx.Done()        Stop, return nil
//	        <-restart request   Restart, failure -> Stop, return error
//
// Restart requests come from the cron job (service.restart.cron) or from
// RequestRestart, e.g. on SIGHUP. Pending requests are merged, so a burst of
// triggers leads to a single restart.
//
// A start that ends without the initialization signal is not a failure: the
// gateway is left running and the loop continues.
package service
