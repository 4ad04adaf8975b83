// Package eventtree provides hierarchical event managers for in-process
// objects. Each object gets a Manager linked to a parent manager; an event
// invoked on a manager runs its own listeners and then bubbles up the parent
// chain to the root.
//
// Basic example:
//
//	r := eventtree.NewRegistry()
//
//	app, _ := r.Setup(appObj, nil)        // parent nil links to the root
//	btn, _ := r.Setup(buttonObj, appObj)  // parent is the owner of app
//
//	app.AttachFunc("click", func(inv *eventtree.Invocation, args ...any) {
//	    fmt.Println("clicked", inv.Origin())
//	}, eventtree.BubbleOnly())
//
//	btn.Invoke("click", 10, 20)
//
// Parents may be set up after their children. The child is linked to the
// root until the parent appears, then its registrations are replayed up the
// new chain.
//
// Registry Options:
//   - WithName: name for the tracer and meter. Default is "eventtree".
//   - WithLogger: set the slog logger. Default is slog.Default with a component attribute.
//   - WithTracing: enable/disable OpenTelemetry spans per invocation. Default is true.
//   - WithMetrics: enable/disable OpenTelemetry counters. Default is true.
//   - WithRecovery: enable/disable panic recovery around listeners. Default is true.
//   - WithConfig: apply ConfigOptions before any manager exists.
//
// Configuration (frozen at the first Setup, overridable per manager):
//   - WithArbitraryEvents, WithEventList: event name policy.
//   - WithArbitraryInvoke: expose Invoke and RegisterList.
//   - WithStrict: require Register before Attach and Invoke.
//   - WithBubble: propagate registrations to ancestors.
//   - WithErrorHandler, WithWarningHandler: receive errors instead of the caller.
//
// Listener Options:
//   - Once: remove the listener the first time an invocation reaches it.
//   - OriginOnly: run only for events invoked on the listener's own manager.
//   - BubbleOnly: run only for events bubbled from a descendant.
//
// Pausing:
// A listener may call Invocation.Pause and later Resume to wait for
// asynchronous work. Registries are not safe for concurrent use, so Resume
// must run on the goroutine that drives the registry. Loop and Suspend do
// that:
//
//	loop := eventtree.NewLoop(0)
//	go loop.Run(ctx)
//	loop.Do(ctx, func() {
//	    m.AttachFunc("save", eventtree.Suspend(loop, eventtree.Limited(limiter, upload), nil))
//	    m.Invoke("save", doc)
//	})
//
// Errors:
// Operations report *Error values wrapping a sentinel (ErrInvalidEventName,
// ErrUnregisteredEvent, ...). Warnings are dropped unless a warning handler
// is configured; errors are returned unless an error handler is configured.
package eventtree
