// Package realtime drives a smartstate.State from many goroutines with
// tick-based, deterministic batching.
//
// A State is single-threaded. The Runtime owns one, queues partial updates
// from any goroutine and applies them at fixed tick boundaries:
//   - Updates are batched and applied once per tick
//   - Ordering is deterministic: priority, then submission sequence
//   - A rejected update is logged and skipped; the rest of the tick runs
//
// # Example Usage
//
//	rt := realtime.NewRuntime(s, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 Hz
//	})
//	rt.Start(ctx)
//	rt.Submit(smartstate.Props{"x": 1.0})
//	rt.View(func(s *smartstate.State) { fmt.Println(s.GetKey("x")) })
//
// With Config.Coalesce a tick's updates are merged into a single Set, so
// watchers see at most one wave per tick.
//
// Step processes one tick synchronously, which lets fixed-step simulations
// and tests run without a ticker.
package realtime
