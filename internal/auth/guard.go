package auth

import "strings"

// Requirement is a permission expression evaluated before a handler runs:
// either any-of a set of codes, or ownership of a path parameter with a
// single fallback code.
type Requirement struct {
	codes      []string
	ownerParam string
}

// RequirePermission demands a single permission code.
func RequirePermission(code string) Requirement {
	return Requirement{codes: []string{code}}
}

// AnyOf is satisfied when the identity holds at least one of codes.
func AnyOf(codes ...string) Requirement {
	return Requirement{codes: append([]string(nil), codes...)}
}

// OwnerOrPermission is satisfied when the identity owns the record named by
// the path parameter param, or holds code.
func OwnerOrPermission(param, code string) Requirement {
	return Requirement{codes: []string{code}, ownerParam: param}
}

// OwnerParam returns the path parameter used for the ownership check, if any.
func (r Requirement) OwnerParam() string { return r.ownerParam }

// Codes returns the permission codes referenced by the requirement.
func (r Requirement) Codes() []string { return append([]string(nil), r.codes...) }

func (r Requirement) String() string {
	if r.ownerParam != "" {
		return "owner(" + r.ownerParam + ")|" + r.codes[0]
	}
	return strings.Join(r.codes, "|")
}
