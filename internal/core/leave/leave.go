package leave

import (
	"fmt"
	"strings"
)

type Type string

const (
	TypeAnnual    Type = "annual"
	TypeSick      Type = "sick"
	TypePersonal  Type = "personal"
	TypeMaternity Type = "maternity"
	TypePaternity Type = "paternity"
)

// Types lists every leave type in ascending name order.
var Types = []Type{TypeAnnual, TypeMaternity, TypePaternity, TypePersonal, TypeSick}

// DefaultAllocations is the number of days granted per type for a new year.
var DefaultAllocations = map[Type]int{
	TypeAnnual:    20,
	TypeSick:      10,
	TypePersonal:  5,
	TypeMaternity: 90,
	TypePaternity: 14,
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := DefaultAllocations[t]; !ok {
		return "", fmt.Errorf("unknown leave type %q", s)
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := DefaultAllocations[t]
	return ok
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsDecision reports whether s is a status a manager can move a request to.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

func TypeNames() []string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return names
}
