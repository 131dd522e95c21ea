// Package query holds the read side of staff administration: profile
// lookups, the staff directory, invitation attempts and the audit feed.
// Every privileged query goes through the authorization guard.
package query
