package capability

import (
	"fmt"
	"sync"

	"github.com/causalityco/causality/pkg/operation"
	"golang.org/x/sync/singleflight"
)

// record is the registry's internal bookkeeping for one issued or
// delegated capability, kept alongside the immutable operation.Capability
// it wraps.
type record struct {
	cap      operation.Capability
	revoked  bool
	children []operation.ContentHash // delegation DAG edges: cap.Id -> child ids
}

// Registry is the capability store and verifier. It tracks the full
// delegation DAG so that revoking a capability can cascade to everything
// delegated from it, mirroring the registration-and-lookup shape of
// pkg/strategy's Registry.
type Registry struct {
	mu    sync.RWMutex
	byId  map[operation.ContentHash]*record
	revSF singleflight.Group // collapses concurrent ancestor-revocation walks for the same id

	keys KeyResolver // resolves an issuer to the key it must have signed with
}

// NewRegistry returns an empty Registry that authenticates every issued or
// delegated capability's Signature against keys. A nil or empty resolver
// makes every Issue/Delegate/Verify call fail closed with
// ErrInvalidSignature, the same way an unrecognized cometbft validator key
// fails closed rather than being silently trusted.
func NewRegistry(keys KeyResolver) *Registry {
	return &Registry{byId: make(map[operation.ContentHash]*record), keys: keys}
}

// verifySignature checks cap.Signature against the ed25519 key keys
// resolves for cap.Issuer.
func (reg *Registry) verifySignature(cap *operation.Capability) error {
	if reg.keys == nil {
		return ErrInvalidSignature
	}
	pub, ok := reg.keys.PublicKey(cap.Issuer)
	if !ok {
		return ErrInvalidSignature
	}
	if !pub.VerifySignature(cap.SignedBytes(), cap.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Issue records a root capability grant (no Parent). cap must already
// carry a Signature from its issuer over SignedBytes (see
// operation.Capability.SignedBytes and Sign); Issue authenticates it
// before indexing.
func (reg *Registry) Issue(cap operation.Capability) (operation.ContentHash, error) {
	if !cap.Parent.Zero() {
		return operation.ContentHash{}, fmt.Errorf("capability: root issuance must have zero parent")
	}
	if err := reg.verifySignature(&cap); err != nil {
		return operation.ContentHash{}, err
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.byId[cap.Id] = &record{cap: cap}
	return cap.Id, nil
}

// Delegate issues a new capability chained to parent via cap.Parent,
// requiring that the delegated rights be a subset of the parent's and
// that cap carry a valid signature from its own issuer.
func (reg *Registry) Delegate(cap operation.Capability) (operation.ContentHash, error) {
	if err := reg.verifySignature(&cap); err != nil {
		return operation.ContentHash{}, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	parent, ok := reg.byId[cap.Parent]
	if !ok {
		return operation.ContentHash{}, ErrParentNotFound
	}
	if parent.revoked {
		return operation.ContentHash{}, ErrParentRevoked
	}
	if !operation.RightsSubset(cap.Rights, parent.cap.Rights) {
		return operation.ContentHash{}, ErrNotAttenuation
	}

	reg.byId[cap.Id] = &record{cap: cap}
	parent.children = append(parent.children, cap.Id)
	return cap.Id, nil
}

// Attenuate names the common case of a holder re-issuing a capability to
// itself or another party with added restrictions; it otherwise behaves
// exactly like Delegate.
func (reg *Registry) Attenuate(cap operation.Capability) (operation.ContentHash, error) {
	return reg.Delegate(cap)
}

// Revoke marks id and every capability transitively delegated from it as
// revoked.
func (reg *Registry) Revoke(id operation.ContentHash) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	root, ok := reg.byId[id]
	if !ok {
		return ErrNotFound
	}

	queue := []operation.ContentHash{id}
	seen := map[operation.ContentHash]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		rec, ok := reg.byId[cur]
		if !ok {
			continue
		}
		rec.revoked = true
		queue = append(queue, rec.children...)
	}
	_ = root
	return nil
}

// Get returns the capability record by id.
func (reg *Registry) Get(id operation.ContentHash) (operation.Capability, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rec, ok := reg.byId[id]
	if !ok {
		return operation.Capability{}, false
	}
	return rec.cap, true
}

// ancestorRevoked walks from id up through Parent references, returning
// true if id or any ancestor has been revoked. Concurrent calls for the
// same id are collapsed through revSF, since a hot capability may be
// re-verified on every operation submission.
func (reg *Registry) ancestorRevoked(id operation.ContentHash) (bool, error) {
	v, err, _ := reg.revSF.Do(id.String(), func() (interface{}, error) {
		reg.mu.RLock()
		defer reg.mu.RUnlock()

		cur := id
		for {
			rec, ok := reg.byId[cur]
			if !ok {
				return false, ErrNotFound
			}
			if rec.revoked {
				return true, nil
			}
			if rec.cap.Parent.Zero() {
				return false, nil
			}
			cur = rec.cap.Parent
		}
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Verify checks that the capability identified by id grants req's rights
// over req's target, has not expired, has no revoked ancestor, and
// satisfies every constraint in its chain. Constraints and signatures are
// checked at every level of the delegation chain, not just the leaf, since
// an attenuating constraint or a forged link higher up still binds.
func (reg *Registry) Verify(id operation.ContentHash, req VerifyRequest) error {
	reg.mu.RLock()
	leaf, ok := reg.byId[id]
	reg.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	if revoked, err := reg.ancestorRevoked(id); err != nil {
		return err
	} else if revoked {
		return ErrRevoked
	}

	if !operation.RightsSubset(req.Rights, leaf.cap.Rights) {
		return ErrRightsExceeded
	}
	if err := checkTarget(&leaf.cap, req); err != nil {
		return err
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()
	cur := leaf
	for {
		if err := reg.verifySignature(&cur.cap); err != nil {
			return err
		}
		if err := checkConstraints(&cur.cap, req); err != nil {
			return err
		}
		if cur.cap.Parent.Zero() {
			return nil
		}
		parent, ok := reg.byId[cur.cap.Parent]
		if !ok {
			return ErrParentNotFound
		}
		cur = parent
	}
}
