package softtoken

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/ldclabs/cose/iana"
	"github.com/ldclabs/cose/key"
)

type authDataFlag byte

const (
	flagUserPresent authDataFlag = 1 << iota
	_
	flagUserVerified
	_
	_
	_
	flagAttestedCredentialData
	flagExtensionData
)

// buildAuthData lays out WebAuthn authenticator data: rpIdHash (32),
// flags (1), big-endian sign count (4), then optional attested credential
// data.
func buildAuthData(rpID string, flags authDataFlag, signCount uint32, attested []byte) []byte {
	rpIDHash := sha256.Sum256([]byte(rpID))

	buf := new(bytes.Buffer)
	buf.Write(rpIDHash[:])
	buf.WriteByte(byte(flags))
	_ = binary.Write(buf, binary.BigEndian, signCount)
	buf.Write(attested)

	return buf.Bytes()
}

// buildAttestedCredentialData lays out AAGUID (16), credential ID length
// (2, big-endian), credential ID, then the COSE-encoded credential public
// key.
func buildAttestedCredentialData(encMode cbor.EncMode, aaguid uuid.UUID, credentialID []byte, pub *ecdsa.PublicKey) ([]byte, error) {
	coseKey, err := encMode.Marshal(ec2PublicKey(pub))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write(aaguid[:])
	_ = binary.Write(buf, binary.BigEndian, uint16(len(credentialID)))
	buf.Write(credentialID)
	buf.Write(coseKey)

	return buf.Bytes(), nil
}

// ec2PublicKey builds the COSE_Key for a P-256 ECDSA public key.
func ec2PublicKey(pub *ecdsa.PublicKey) key.Key {
	return key.Key{
		iana.KeyParameterKty:    iana.KeyTypeEC2,
		iana.KeyParameterAlg:    iana.AlgorithmES256,
		iana.EC2KeyParameterCrv: iana.EllipticCurveP_256,
		iana.EC2KeyParameterX:   pub.X.FillBytes(make([]byte, 32)),
		iana.EC2KeyParameterY:   pub.Y.FillBytes(make([]byte, 32)),
	}
}
