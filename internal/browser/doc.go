// Package browser defines the wire types shared with the extension and an
// in-memory registry mirroring the browser's tabs and recent navigations.
// The browser itself is an external collaborator; everything here is fed by
// the event stream it forwards.
package browser
