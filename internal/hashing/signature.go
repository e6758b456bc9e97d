package hashing

import (
	"encoding/binary"
	"fmt"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
)

// SignatureCodec packs a hash vector into a fixed-size byte signature.
// The signature stands in for the vector in equality checks; it is not a
// cryptographic digest.
type SignatureCodec struct{}

// NewSignatureCodec returns the codec.
func NewSignatureCodec() SignatureCodec {
	return SignatureCodec{}
}

// ToBytes encodes hashes into length bytes. Each bin contributes its
// length/len(hashes) low-order bytes in little-endian order.
func (SignatureCodec) ToBytes(hashes []int64, length int) ([]byte, error) {
	if len(hashes) == 0 {
		return []byte{}, nil
	}
	if length <= 0 || length%len(hashes) != 0 {
		return nil, fperrors.ValidationError(
			fmt.Sprintf("signature length %d is not a positive multiple of %d hash bins", length, len(hashes)), nil)
	}
	bytesPerBin := length / len(hashes)
	if bytesPerBin > 8 {
		return nil, fperrors.ValidationError(
			fmt.Sprintf("signature needs %d bytes per hash bin, at most 8 fit", bytesPerBin), nil)
	}

	var word [8]byte
	signature := make([]byte, length)
	for i, v := range hashes {
		binary.LittleEndian.PutUint64(word[:], uint64(v))
		copy(signature[i*bytesPerBin:(i+1)*bytesPerBin], word[:bytesPerBin])
	}
	return signature, nil
}
