// Package gtfsrt fetches and decodes GTFS-Realtime protobuf feeds.
//
// Two entity kinds are used:
//   - Trip Updates: per-stop arrival and departure predictions
//   - Service Alerts: disruptions and service changes
//
// Client handles transport (API key header, timeout, rate limit). Parse turns a
// FeedMessage into plain Go values that know nothing about protobuf.
package gtfsrt
