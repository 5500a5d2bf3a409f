package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrSignatureMismatch  = errors.New("signature does not match challenge address")
)

// SignatureVerifier checks personal_sign (EIP-191) signatures over the challenge text.
type SignatureVerifier struct{}

// Verify recovers the signer of challenge.Text() and compares it with challenge.Address.
func (SignatureVerifier) Verify(ctx context.Context, challenge Challenge, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d", ErrMalformedSignature, len(sig))
	}

	// Wallets return V as 27/28.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(TextHash(challenge.Text()), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(challenge.Address) {
		return ErrSignatureMismatch
	}
	return nil
}

// TextHash is the EIP-191 hash a wallet signs for personal_sign.
func TextHash(msg string) []byte {
	return crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)))
}
