// Package geo provides the coordinate type and the distance metric used for
// station proximity.
//
// The metric is a flat-earth Euclidean distance in degrees. Search radii supplied
// by API clients are compared directly against it.
package geo
