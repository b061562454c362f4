// Package textmatch implements the keyword ranking shared by station and alert
// search.
//
// Queries and indexed texts are lowercased and split on whitespace. A text
// matches a query in one of three tiers, Exact > Substring > Partial, and
// results are ordered by tier with source order as the only tie-break.
package textmatch
