package domain

// ActorKind is a closed variant over everyone who can touch a ticket.
// Permission checks switch over it exhaustively instead of comparing
// role strings at call sites.
type ActorKind string

const (
	ActorRequester ActorKind = "REQUESTER"
	ActorAgent     ActorKind = "AGENT"
	ActorAdmin     ActorKind = "ADMIN"
	ActorSystem    ActorKind = "SYSTEM"
)

// Actor identifies who performs an operation. ID is empty for the
// system actor; activity entries record it as a null user.
type Actor struct {
	Kind ActorKind
	ID   string
}

// SystemActor is the automation/system principal.
func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

// IsStaff reports whether the actor is a human operator (agent or admin).
func (a Actor) IsStaff() bool {
	switch a.Kind {
	case ActorAgent, ActorAdmin:
		return true
	case ActorRequester, ActorSystem:
		return false
	}
	return false
}

// UserID returns the actor's ID as a nullable reference for activity
// entries. System actors map to nil.
func (a Actor) UserID() *string {
	if a.Kind == ActorSystem || a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
