// Package domain holds the core model types, repository interfaces, and
// sentinel errors shared by every layer of the job tracker.
package domain
