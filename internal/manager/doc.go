// Package manager resolves extensions and presets into one editor.
//
// A Manager is built from a seed list of extensions and presets. New
// resolves the full set (preset members and the builtin doc, text, and
// positioner extensions), rejects name collisions between different
// extension types, and orders everything by priority. Create builds the
// merged schema and initial state; Destroy tears everything down in
// reverse order. A Manager is single use.
//
// Lifecycle:
//
//	New() -> Resolving -> Create() -> Active -> Destroy() -> Destroyed
package manager
