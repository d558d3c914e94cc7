// Package resolver turns typelib metadata into resolved type descriptors.
//
// Descriptors are cached for the process lifetime under their qualified
// name. Concurrent resolutions of the same name are collapsed, so every
// caller observes the same *types.Type.
//
// Self-referential metadata (a struct holding a pointer to itself, objects
// whose methods return their own type) resolves without recursion: the
// recursive leg receives the in-progress descriptor, which is completed
// before anything is published to the cache.
//
// Member lookup by name walks a fixed chain of strategies: the type's own
// members, its parent classes, its implemented interfaces, and finally a
// live class query installed with SetLiveQuery.
package resolver
