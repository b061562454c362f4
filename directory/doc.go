// Package directory is the query surface over every configured transit system.
//
// A Directory owns one refresh coordinator per system for its station index,
// and optionally one for its service alerts. Every query dereferences the
// current index of each system it touches exactly once, so a query never mixes
// data from two refresh cycles of the same system.
//
// Queries accept a concrete system or stations.All. With All, proximity and
// search fan out to every system, tag each hit with its origin and merge the
// results: proximity by distance, search by tier, both falling back to system
// order and then source order. A system that has never been built contributes
// nothing to a merged query but fails a query addressed to it alone with
// stations.ErrUnavailable.
package directory
