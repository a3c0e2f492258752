package migration

import (
	"fmt"

	"github.com/orris-inc/userschema/internal/shared/constants"
	"github.com/orris-inc/userschema/internal/shared/errors"
)

// Registry holds revisions ordered as a single linear chain.
type Registry struct {
	chain []*Revision
	index map[string]int
}

// NewRegistry validates revisions and orders them from root to head.
// Exactly one revision may point at a down revision outside the set; that
// external revision becomes the chain's base.
func NewRegistry(revisions ...*Revision) (*Registry, error) {
	if len(revisions) == 0 {
		return nil, errors.NewValidationError("no revisions registered")
	}

	byID := make(map[string]*Revision, len(revisions))
	for _, rev := range revisions {
		switch {
		case rev == nil:
			return nil, errors.NewValidationError("nil revision registered")
		case rev.ID == "":
			return nil, errors.NewValidationError("revision id is empty", rev.Message)
		case rev.ID == rev.DownRevision:
			return nil, errors.NewValidationError("revision is its own down revision", rev.ID)
		case rev.Upgrade == nil || rev.Downgrade == nil:
			return nil, errors.NewValidationError("revision must define upgrade and downgrade", rev.ID)
		case rev.ID == constants.TargetHead || rev.ID == constants.TargetBase:
			return nil, errors.NewValidationError("revision id is reserved", rev.ID)
		}
		if _, dup := byID[rev.ID]; dup {
			return nil, errors.NewValidationError("duplicate revision id", rev.ID)
		}
		byID[rev.ID] = rev
	}

	children := make(map[string]*Revision, len(revisions))
	var roots []*Revision
	for _, rev := range revisions {
		if other, ok := children[rev.DownRevision]; ok {
			return nil, errors.NewValidationError("branched history",
				fmt.Sprintf("%s and %s both revise %q", other.ID, rev.ID, rev.DownRevision))
		}
		children[rev.DownRevision] = rev
		if _, known := byID[rev.DownRevision]; !known {
			roots = append(roots, rev)
		}
	}

	if len(roots) != 1 {
		return nil, errors.NewValidationError("history must have exactly one root",
			fmt.Sprintf("found %d", len(roots)))
	}

	r := &Registry{index: make(map[string]int, len(revisions))}
	for rev := roots[0]; rev != nil; rev = children[rev.ID] {
		r.index[rev.ID] = len(r.chain)
		r.chain = append(r.chain, rev)
	}

	if len(r.chain) != len(revisions) {
		return nil, errors.NewValidationError("history contains a cycle",
			fmt.Sprintf("%d of %d revisions reachable from root", len(r.chain), len(revisions)))
	}

	return r, nil
}

// Revisions returns the chain from root to head.
func (r *Registry) Revisions() []*Revision {
	out := make([]*Revision, len(r.chain))
	copy(out, r.chain)
	return out
}

// Base is the down revision of the root; empty when history starts here.
func (r *Registry) Base() string {
	return r.chain[0].DownRevision
}

// Head is the newest revision.
func (r *Registry) Head() string {
	return r.chain[len(r.chain)-1].ID
}

// Get looks up a revision by id.
func (r *Registry) Get(id string) (*Revision, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.chain[i], true
}

// Position is the chain index of a registered revision.
func (r *Registry) Position(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Resolve maps a target to a chain position. -1 stands for the base.
func (r *Registry) Resolve(target string) (int, error) {
	switch target {
	case constants.TargetHead:
		return len(r.chain) - 1, nil
	case constants.TargetBase:
		return -1, nil
	}
	if target != "" && target == r.Base() {
		return -1, nil
	}
	if i, ok := r.index[target]; ok {
		return i, nil
	}
	return 0, errors.NewNotFoundError("unknown revision", target)
}

// versionAt is the revision recorded once position pos is applied.
func (r *Registry) versionAt(pos int) string {
	if pos < 0 {
		return r.Base()
	}
	return r.chain[pos].ID
}
