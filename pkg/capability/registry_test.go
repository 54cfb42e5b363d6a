package capability

import (
	"testing"

	cmted25519 "github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/stretchr/testify/require"
)

// testIssuerKey is the fixed keypair every test capability is signed
// with; testResolver is the matching trust table a Registry needs to
// authenticate them.
var testIssuerKey = cmted25519.GenPrivKeyFromSecret([]byte("capability-registry-test-issuer"))

func testResolver() StaticKeyResolver {
	return StaticKeyResolver{"issuer-1": testIssuerKey.PubKey().(cmted25519.PubKey)}
}

func newTestRegistry() *Registry {
	return NewRegistry(testResolver())
}

func rootCap(rights []operation.Right, constraints map[string]string) operation.Capability {
	c := operation.Capability{
		Rights:      rights,
		Target:      operation.Target{Kind: operation.TargetTypePattern, Pattern: "token"},
		Issuer:      "issuer-1",
		Holder:      "holder-1",
		Constraints: constraints,
	}
	if err := Sign(&c, testIssuerKey); err != nil {
		panic(err)
	}
	return c
}

// childCap builds a capability delegated from parent, signed by the same
// test issuer. Parent must be set before signing since it is part of
// SignedBytes.
func childCap(parent operation.ContentHash, rights []operation.Right, constraints map[string]string) operation.Capability {
	c := operation.Capability{
		Rights:      rights,
		Target:      operation.Target{Kind: operation.TargetTypePattern, Pattern: "token"},
		Issuer:      "issuer-1",
		Holder:      "holder-1",
		Constraints: constraints,
		Parent:      parent,
	}
	if err := Sign(&c, testIssuerKey); err != nil {
		panic(err)
	}
	return c
}

func TestIssueAndVerify(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, nil)
	id, err := reg.Issue(c)
	require.NoError(t, err)

	err = reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
	})
	require.NoError(t, err)
}

func TestIssueRejectsBadSignature(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, nil)
	c.Signature[0] ^= 0xFF // corrupt a signed, still-structurally-valid capability

	_, err := reg.Issue(c)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestIssueRejectsUnknownIssuer(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, nil)
	c.Issuer = "issuer-2" // no key registered for this issuer in testResolver
	c.Rehash()

	_, err := reg.Issue(c)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRightsExceeded(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightRead}}, nil)
	id, _ := reg.Issue(c)

	err := reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
	})
	require.ErrorIs(t, err, ErrRightsExceeded)
}

func TestDelegateMustBeSubset(t *testing.T) {
	reg := newTestRegistry()
	root := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, nil)
	rootId, _ := reg.Issue(root)

	child := childCap(rootId, []operation.Right{{Kind: operation.RightTransfer}, {Kind: operation.RightDelete}}, nil)

	_, err := reg.Delegate(child)
	require.ErrorIs(t, err, ErrNotAttenuation)
}

func TestDelegateNarrowingSucceeds(t *testing.T) {
	reg := newTestRegistry()
	root := rootCap([]operation.Right{{Kind: operation.RightTransfer}, {Kind: operation.RightRead}}, nil)
	rootId, _ := reg.Issue(root)

	child := childCap(rootId, []operation.Right{{Kind: operation.RightRead}}, nil)

	childId, err := reg.Delegate(child)
	require.NoError(t, err)

	err = reg.Verify(childId, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightRead}},
		ResourceTy: "token",
	})
	require.NoError(t, err)
}

func TestRevocationCascades(t *testing.T) {
	reg := newTestRegistry()
	root := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, nil)
	rootId, _ := reg.Issue(root)

	child := childCap(rootId, []operation.Right{{Kind: operation.RightTransfer}}, nil)
	childId, err := reg.Delegate(child)
	require.NoError(t, err)

	require.NoError(t, reg.Revoke(rootId))

	err = reg.Verify(childId, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
	})
	require.ErrorIs(t, err, ErrRevoked)
}

func TestConstraintExpiresAt(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, map[string]string{"expires_at": "100"})
	id, _ := reg.Issue(c)

	require.NoError(t, reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
		WallClock:  50,
	}))

	err := reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
		WallClock:  200,
	})
	require.ErrorIs(t, err, ErrExpired)
}

func TestConstraintUnknownKeyFailsClosed(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, map[string]string{"typo_field": "x"})
	id, _ := reg.Issue(c)

	err := reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
	})
	require.ErrorIs(t, err, ErrUnknownConstraint)
}

func TestConstraintMaxAmount(t *testing.T) {
	reg := newTestRegistry()
	c := rootCap([]operation.Right{{Kind: operation.RightTransfer}}, map[string]string{"max_amount": "10"})
	id, _ := reg.Issue(c)

	require.NoError(t, reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
		Amount:     5,
	}))
	err := reg.Verify(id, VerifyRequest{
		Rights:     []operation.Right{{Kind: operation.RightTransfer}},
		ResourceTy: "token",
		Amount:     50,
	})
	require.ErrorIs(t, err, ErrConstraintViolated)
}

func TestDelegateParentNotFound(t *testing.T) {
	reg := newTestRegistry()

	// Force a non-zero but unregistered parent to exercise ErrParentNotFound.
	bogus := childCap(rootCap(nil, nil).Id, []operation.Right{{Kind: operation.RightRead}}, nil)

	_, err := reg.Delegate(bogus)
	require.ErrorIs(t, err, ErrParentNotFound)
}
