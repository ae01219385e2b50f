package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Principal is the authenticated caller, resolved once per request from the
// user, its profile and (for the client role) its Client record.
type Principal struct {
	UserID primitive.ObjectID
	Role   Role // empty when the user has no profile
	Staff  bool
	// ClientID is set only for client-role principals that own a Client record.
	ClientID *primitive.ObjectID
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// OwnsClient reports whether the principal is the client-role owner of clientID.
func (p *Principal) OwnsClient(clientID primitive.ObjectID) bool {
	return p.ClientID != nil && *p.ClientID == clientID
}
