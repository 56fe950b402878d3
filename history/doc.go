// Package history persists the launcher's lifecycle events in SQLite.
//
// Each launcher run gets a session id; every state transition, the backend's
// PID, spawn failures and the final kill are stored against it so a run that
// left an orphaned backend or never became ready can be inspected afterwards
// with `e2spy history`.
package history
