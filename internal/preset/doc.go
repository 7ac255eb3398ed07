// Package preset bundles extensions behind one option surface.
//
// A preset creates its member extensions exactly once, in NewBase. Later
// option changes are forwarded to the members that care about them with
// Forward, and custom handlers are routed to a single member with Route.
package preset
