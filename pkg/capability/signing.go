package capability

import (
	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"

	"github.com/causalityco/causality/pkg/operation"
)

// KeyResolver maps an issuer entity to the ed25519 public key it
// currently signs capabilities with, the same role a validator set
// lookup plays for cometbft consensus signatures.
type KeyResolver interface {
	PublicKey(issuer operation.EntityId) (cmted25519.PubKey, bool)
}

// StaticKeyResolver is a fixed issuer-to-key table: the common case for a
// single-operator deployment or a test harness that mints its own keys.
type StaticKeyResolver map[operation.EntityId]cmted25519.PubKey

// PublicKey implements KeyResolver.
func (m StaticKeyResolver) PublicKey(issuer operation.EntityId) (cmted25519.PubKey, bool) {
	k, ok := m[issuer]
	return k, ok
}

// Sign populates cap.Signature by signing SignedBytes with priv and
// recomputes cap.Id, which folds the signature into the capability's
// content hash. Callers construct cap fully (Rights, Target, Issuer,
// Holder, Constraints, Parent) before calling Sign.
func Sign(cap *operation.Capability, priv cmted25519.PrivKey) error {
	sig, err := priv.Sign(cap.SignedBytes())
	if err != nil {
		return err
	}
	cap.Signature = sig
	cap.Rehash()
	return nil
}
