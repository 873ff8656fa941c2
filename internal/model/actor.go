package model

import "github.com/google/uuid"

type ActorRole string

const (
	ActorRoleGuruMapel ActorRole = "GURUMAPEL"
	ActorRoleWaliKelas ActorRole = "WALIKELAS"
	ActorRoleBK        ActorRole = "BK"
	ActorRoleStudent   ActorRole = "STUDENT"
	ActorRoleAdmin     ActorRole = "ADMIN"
	ActorRoleSystem    ActorRole = "SYSTEM"
)

// Actor is the already-authenticated caller identity, passed explicitly into
// every service call. Role is advisory: it is recorded in the audit trail but
// transition legality depends only on the record's current status.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role ActorRole
}

// SystemActor is the identity used for automation-originated writes.
var SystemActor = Actor{
	ID:   uuid.Nil,
	Name: "System Automation",
	Role: ActorRoleSystem,
}
