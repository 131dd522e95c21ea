// Package command exposes go-command compatible handlers for staff
// administration: the invitation pipeline, role changes, suspension, removal,
// self profile bootstrap and the invitation reconciliation sweep. Commands are
// wired by the service layer and can be invoked by any transport.
package command
