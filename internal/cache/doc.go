// Package cache provides the persistent store for synthesized audio.
// Entries are content-addressed, append-only, optionally compressed on
// disk, and survive across runs so repeated builds stay fast.
package cache
