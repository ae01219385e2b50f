package repository

import "go.mongodb.org/mongo-driver/bson/primitive"

// ScopeMode selects which rows a listing may return.
type ScopeMode int

const (
	// ScopeNone yields an empty result set.
	ScopeNone ScopeMode = iota
	// ScopeAll yields every non-deleted row.
	ScopeAll
	// ScopeClient yields rows linked to one Client record.
	ScopeClient
	// ScopeUser yields rows owned by one User.
	ScopeUser
)

// Scope is the row-level filter predicate produced by the authorization
// resolver and translated into a query by each repository.
type Scope struct {
	Mode     ScopeMode
	ClientID primitive.ObjectID
	UserID   primitive.ObjectID
}

func AllRows() Scope { return Scope{Mode: ScopeAll} }

func NoRows() Scope { return Scope{Mode: ScopeNone} }

func ClientRows(clientID primitive.ObjectID) Scope {
	return Scope{Mode: ScopeClient, ClientID: clientID}
}

func UserRows(userID primitive.ObjectID) Scope {
	return Scope{Mode: ScopeUser, UserID: userID}
}

// Owner describes who a single row belongs to.
type Owner struct {
	ClientID *primitive.ObjectID
	UserID   *primitive.ObjectID
}

// Permits reports whether a row with the given owner falls inside the scope.
func (s Scope) Permits(owner Owner) bool {
	switch s.Mode {
	case ScopeAll:
		return true
	case ScopeClient:
		return owner.ClientID != nil && *owner.ClientID == s.ClientID
	case ScopeUser:
		return owner.UserID != nil && *owner.UserID == s.UserID
	default:
		return false
	}
}

func (m ScopeMode) String() string {
	switch m {
	case ScopeAll:
		return "all"
	case ScopeClient:
		return "client"
	case ScopeUser:
		return "user"
	default:
		return "none"
	}
}
