// Package pgp verifies commit and tag signatures created with GPG/PGP,
// against a caller-supplied keyring.
package pgp

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/gitshelf/gitshelf/plumbing/object/signature"
)

// Verifier checks a detached armored PGP signature against a known set of
// entities.
type Verifier struct {
	entities openpgp.EntityList
}

// NewVerifier builds a Verifier from an already-parsed entity list.
func NewVerifier(entities openpgp.EntityList) *Verifier {
	return &Verifier{entities: entities}
}

// NewVerifierFromArmoredKeyRing parses an armored public keyring and builds
// a Verifier from it.
func NewVerifierFromArmoredKeyRing(r io.Reader) (*Verifier, error) {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return nil, fmt.Errorf("pgp: reading keyring: %w", err)
	}
	return NewVerifier(entities), nil
}

// Verify checks o's signature against the verifier's entities and returns
// whichever entity produced it.
func (v *Verifier) Verify(o signature.VerifiableObject) (signature.Entity, error) {
	sig, ok := o.Signature()
	if !ok {
		return nil, fmt.Errorf("pgp: object carries no signature")
	}

	encoded := bytes.NewReader(o.EncodeWithoutSignature())
	entity, err := openpgp.CheckArmoredDetachedSignature(v.entities, encoded, strings.NewReader(sig), nil)
	if err != nil {
		return nil, fmt.Errorf("pgp: signature verification failed: %w", err)
	}

	return &Entity{entity: entity}, nil
}
