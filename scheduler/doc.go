// Package scheduler admits future-dated care tasks and feeds them into
// the dispatch queue when they come due.
package scheduler
