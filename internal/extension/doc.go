// Package extension defines the unit of editor behaviour.
//
// An extension owns a resolved option set, a handler registry, and a set
// of custom-handler slots. Concrete extensions embed *Base and opt into
// manager features by implementing the capability interfaces in this
// package: SchemaContributor, PluginContributor, CommandContributor,
// KeymapContributor, Initializer, and Destroyer.
package extension
