package pgp

import (
	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/gitshelf/gitshelf/plumbing/object/signature"
)

// EntityType identifies a signature.Entity produced by this package.
const EntityType signature.EntityType = "PGP"

// Entity is the PGP key that signed a signature.VerifiableObject.
type Entity struct {
	entity *openpgp.Entity
}

// Canonical returns the signer's primary key ID.
func (e *Entity) Canonical() string {
	return e.entity.PrimaryKey.KeyIdString()
}

// Type returns EntityType.
func (e *Entity) Type() signature.EntityType {
	return EntityType
}

// Concrete returns the underlying *openpgp.Entity.
func (e *Entity) Concrete() interface{} {
	return e.entity
}
