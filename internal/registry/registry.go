// Package registry maintains the bidirectional mapping between a
// participant's email and the connection handle of their live transport
// connection.
package registry

// Registry holds one active connection per email and one email per
// connection at any instant.
//
// It is not safe for concurrent use; the session coordinator owns it and
// serializes all access.
type Registry struct {
	emailToConn map[string]string
	connToEmail map[string]string
}

func New() *Registry {
	return &Registry{
		emailToConn: make(map[string]string),
		connToEmail: make(map[string]string),
	}
}

// Bind installs both directions of the (email, connID) mapping, overwriting
// any prior mapping for either key. Stale reverse entries left behind by an
// overwrite are removed so the two maps stay mutually inverse.
//
// Bind never evicts an overwritten connection from its room: a participant
// re-joining from a new connection rebinds their email while the old
// connection keeps its room membership until it disconnects.
func (r *Registry) Bind(email, connID string) {
	if prev, ok := r.emailToConn[email]; ok && prev != connID {
		delete(r.connToEmail, prev)
	}
	if prev, ok := r.connToEmail[connID]; ok && prev != email {
		delete(r.emailToConn, prev)
	}
	r.emailToConn[email] = connID
	r.connToEmail[connID] = email
}

// LookupEmail returns the email bound to connID.
func (r *Registry) LookupEmail(connID string) (string, bool) {
	email, ok := r.connToEmail[connID]
	return email, ok
}

// LookupConnection returns the connection handle bound to email.
func (r *Registry) LookupConnection(email string) (string, bool) {
	connID, ok := r.emailToConn[email]
	return connID, ok
}

// Unbind removes both directions of the entry keyed by connID. No-op if the
// connection is not bound.
func (r *Registry) Unbind(connID string) {
	email, ok := r.connToEmail[connID]
	if !ok {
		return
	}
	delete(r.connToEmail, connID)
	// Only drop the forward entry if it still points at this connection; a
	// re-join from a new connection may have already rebound the email.
	if cur, ok := r.emailToConn[email]; ok && cur == connID {
		delete(r.emailToConn, email)
	}
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	return len(r.connToEmail)
}
