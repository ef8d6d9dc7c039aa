package rbac

type Role string
type Action string

const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
)

const (
	ActionReadComplaint   Action = "complaint.read"
	ActionListOwn         Action = "complaint.list_own"
	ActionListAll         Action = "complaint.list_all"
	ActionCreateComplaint Action = "complaint.create"
	ActionTransition      Action = "complaint.transition"
	ActionComment         Action = "complaint.comment"
	ActionOwnStats        Action = "stats.own"
	ActionGlobalStats     Action = "stats.global"
	ActionManageUsers     Action = "users.manage"
)

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Can decides whether callerID acting with role may perform action on a
// resource owned by resourceOwnerID. Pass 0 as the owner for actions that do
// not target a single complaint.
func Can(role Role, action Action, resourceOwnerID, callerID int64) Decision {
	switch role {
	case RoleAuthority:
		switch action {
		case ActionReadComplaint, ActionListAll, ActionTransition, ActionComment,
			ActionGlobalStats, ActionManageUsers:
			return Allow
		}
		return Deny
	case RoleCitizen:
		switch action {
		case ActionListOwn, ActionCreateComplaint, ActionOwnStats:
			return Allow
		case ActionReadComplaint, ActionComment:
			return Decision(callerID != 0 && resourceOwnerID == callerID)
		}
		return Deny
	default:
		return Deny
	}
}

// Normalize maps stored role names, including the legacy Spanish ones, onto
// a Role. Anything unrecognised becomes a citizen.
func Normalize(role string) Role {
	switch role {
	case string(RoleAuthority), "autoridad":
		return RoleAuthority
	default:
		return RoleCitizen
	}
}

// Parse is the strict form of Normalize used when a role is being assigned.
func Parse(role string) (Role, bool) {
	switch role {
	case string(RoleAuthority), "autoridad":
		return RoleAuthority, true
	case string(RoleCitizen), "ciudadano":
		return RoleCitizen, true
	default:
		return "", false
	}
}
