// Package handler provides handler dispatch for extensions, presets and the
// manager.
//
// Two registration shapes are supported:
//
//   - Handlers: any number of subscribers per declared key, invoked in
//     subscription order. Dispatch works on a snapshot taken when it starts,
//     so subscribers may dispose themselves or each other mid-dispatch.
//   - Custom handlers: a single active value per (key, slot). Setting a slot
//     that is already populated replaces the previous value and runs its
//     release function.
//
// Both return a *Disposer whose Dispose method is idempotent.
package handler
