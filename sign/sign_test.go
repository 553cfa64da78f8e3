package sign

import (
	"testing"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/stretchr/testify/require"
)

func TestSessionIDPermutationInvariant(t *testing.T) {
	a := []primitives.ValidatorSet{
		{Network: primitives.NetworkBitcoin, Session: 1},
		{Network: primitives.NetworkEthereum, Session: 2},
	}
	b := []primitives.ValidatorSet{a[1], a[0]}
	require.Equal(t, SessionID(a), SessionID(b))
}

func TestVerifyRoundTrip(t *testing.T) {
	pub, priv, err := schnorrkel.GenerateKeypair()
	require.NoError(t, err)

	cosign := primitives.Cosign{
		GlobalSession: [32]byte{1, 2, 3},
		BlockNumber:   7,
		BlockHash:     [32]byte{4, 5, 6},
		Cosigner:      primitives.NetworkBitcoin,
	}

	transcript := schnorrkel.NewSigningContext([]byte(primitives.COSIGN_CONTEXT), cosign.MarshalCanonical())
	sig, err := priv.Sign(transcript)
	require.NoError(t, err)

	pubBytes := pub.Encode()
	sigBytes := sig.Encode()

	require.True(t, Verify(pubBytes, cosign, sigBytes))

	cosign.BlockNumber = 8
	require.False(t, Verify(pubBytes, cosign, sigBytes))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	cosign := primitives.Cosign{BlockNumber: 1}
	require.False(t, Verify([32]byte{0xff}, cosign, [64]byte{0xff}))
}
