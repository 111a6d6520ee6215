package model

import "strings"

// Org identifies one of the two organizations that own volunteer records
type Org string

const (
	OrgITECPEC Org = "ITECPEC"
	OrgCAPEC   Org = "CAPEC"
	// OrgBoth is only ever a lookup hint, never a stored organization
	OrgBoth Org = "BOTH"
)

// Orgs lists the stored organizations in resolution priority order
var Orgs = []Org{OrgITECPEC, OrgCAPEC}

func (o Org) IsValid() bool {
	return o == OrgITECPEC || o == OrgCAPEC
}

// Other returns the partition that is not o. Only meaningful for valid orgs.
func (o Org) Other() Org {
	if o == OrgITECPEC {
		return OrgCAPEC
	}
	return OrgITECPEC
}

// ParseOrgHint normalises a caller-supplied org value.
// Unknown values and the empty string become "" (no hint).
func ParseOrgHint(raw string) Org {
	switch Org(strings.ToUpper(strings.TrimSpace(raw))) {
	case OrgITECPEC:
		return OrgITECPEC
	case OrgCAPEC:
		return OrgCAPEC
	case OrgBoth:
		return OrgBoth
	default:
		return ""
	}
}

// Status values shared by attendance sessions and tasks
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
)

// IsModeration reports whether s is a valid moderation outcome
func (s Status) IsModeration() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Task actions accepted by the transition endpoint
const (
	TaskActionAccept   = "accept"
	TaskActionComplete = "complete"
)

// Audit actors
const (
	ActorSystem    = "system"
	ActorVolunteer = "volunteer"
	ActorAdmin     = "admin"
)

// Table names recorded on audit records
const (
	TableVolunteers = "volunteers"
	TableAttendance = "attendance"
	TableTasks      = "tasks"
)

const (
	DefaultDeviceID     = "manual"
	DefaultTaskCategory = "general"
)
