// Package activity persists the staff administration audit trail. Store is
// both the ActivitySink the commands write to and the ActivityRepository
// the feed query reads. Payloads are masked on the way out, not on write.
package activity
