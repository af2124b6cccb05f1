package assemble

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("assemble: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalArtifact serializes an Artifact to CBOR bytes. Unlike the
// binary Serialize form, CBOR carries arbitrary constant values.
func MarshalArtifact(a *Artifact) ([]byte, error) {
	return cborEncMode.Marshal(a)
}

// UnmarshalArtifact deserializes an Artifact from CBOR bytes.
func UnmarshalArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("assemble: unmarshal artifact: %w", err)
	}
	return &a, nil
}
