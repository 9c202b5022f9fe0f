// Package api maps the action names accepted by /api.php to their
// handlers.
//
// The set of actions is closed: [ParseAction] rejects anything else, and
// [Dispatcher.Dispatch] switches over every [Action] value. Capture control
// and configuration actions are reserved and answer 501 until they are
// implemented. Dispatch never panics past its boundary.
package api
