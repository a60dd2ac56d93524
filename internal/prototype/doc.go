// Package prototype defines the prototype domain model: named, inheritable
// attribute templates used to construct game entities.
//
// A prototype couples free-form attributes with reserved meta fields (key,
// description, lock string, tags, parents, typeclass). Prototypes come from
// two sources: read-only declarations materialized at startup from source
// modules, and editable records held in persistent storage. Both share this
// representation.
package prototype
