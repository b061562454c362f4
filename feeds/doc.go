// Package feeds turns GTFS-RT trip update and alert feeds into the snapshots
// the directory indexes.
//
// Each builder owns a fixed station topology loaded at startup and, on every
// Fetch, returns a new snapshot whose arrivals all come from that one fetch.
// Arrivals outside [now, now+MaxMinutes] are dropped and each direction keeps
// at most MaxTrains, earliest first.
package feeds
