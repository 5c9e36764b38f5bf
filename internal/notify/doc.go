// Package notify delivers push notifications over ntfy. Placement prompts
// carry HTTP action buttons that call back into the daemon API with the
// user's choice; routine routing events and errors are plain notifications.
// Without a configured topic every operation is a no-op.
package notify
