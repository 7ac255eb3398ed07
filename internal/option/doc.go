// Package option provides the option registry shared by extensions and presets.
//
// Options are resolved in three layers, each overriding the previous one:
//
//	globals   BaseDefaults(), or the snapshot passed in by the caller
//	defaults  the component's Spec.Defaults
//	caller    the values handed to the constructor
//
// A caller key that none of the layers declares is rejected with
// ErrInvalidExtensionOptions. Handler keys are never compared as data; they
// always resolve to an invocable handler.Func so that calling an
// onSomething option is safe even with zero subscribers.
//
// Updates after construction go through Diff, which returns a Change
// holding only the keys whose values actually moved. Presets use
// Change.PickChanged to forward subsets to their member extensions.
package option
