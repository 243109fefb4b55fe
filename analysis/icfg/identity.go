package icfg

import (
	"strings"

	"github.com/cs-au-dk/icfg/utils"
)

// Identity is the key under which a function is imported and resolved:
// its declaring contract (or scope) together with its signature.
type Identity struct {
	Scope     string
	Signature string
}

func (id Identity) String() string {
	if id.Scope == "" {
		return id.Signature
	}
	return id.Scope + "." + id.Signature
}

// Name is the function name without the parameter list.
func (id Identity) Name() string {
	if i := strings.IndexByte(id.Signature, '('); i >= 0 {
		return id.Signature[:i]
	}
	return id.Signature
}

func (id Identity) Hash() uint32 {
	return utils.HashCombine(utils.HashString(id.Scope), utils.HashString(id.Signature))
}

func (id Identity) Equal(o Identity) bool {
	return id == o
}

// ParseIdentity splits "Scope.signature(args)" at the last '.' preceding the
// parameter list. Strings without a scope yield an identity with an empty Scope.
func ParseIdentity(s string) Identity {
	head := s
	if i := strings.IndexByte(s, '('); i >= 0 {
		head = s[:i]
	}
	if i := strings.LastIndexByte(head, '.'); i >= 0 {
		return Identity{Scope: s[:i], Signature: s[i+1:]}
	}
	return Identity{Signature: s}
}
