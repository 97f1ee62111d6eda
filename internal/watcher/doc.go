// Package watcher queues uploaded schedule workbooks and imports them in
// the background on a fixed interval.
package watcher
