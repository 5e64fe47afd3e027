package claim

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Session wraps a two-party MuSig2 ceremony: nonce generation, context
// creation with an optional taproot-tweak merkle root, and partial
// signature production/combination. One Session is used per
// claim/co-sign, never reused across swaps.
type Session struct {
	localPriv  *btcec.PrivateKey
	localPub   *btcec.PublicKey
	remotePub  *btcec.PublicKey
	merkleRoot []byte // nil for key-spend-only aggregates

	localNonces *musig2.Nonces
	remoteNonce [musig2.PubNonceSize]byte

	ctx     *musig2.Context
	session *musig2.Session
}

// NewSession builds a Session for a signature aggregate between the
// wallet's local key and the counterparty's public key, optionally
// tweaked by a taproot script-tree merkle root.
func NewSession(localPriv *btcec.PrivateKey, remotePub *btcec.PublicKey, merkleRoot []byte) *Session {
	return &Session{
		localPriv:  localPriv,
		localPub:   localPriv.PubKey(),
		remotePub:  remotePub,
		merkleRoot: merkleRoot,
	}
}

// GenerateNonces produces this session's fresh public nonce. Must be
// called exactly once before Init, and never reused across signing
// attempts: reusing a MuSig2 nonce leaks the private key.
func (s *Session) GenerateNonces() (*musig2.Nonces, error) {
	nonces, err := musig2.GenNonces(musig2.WithPublicKey(s.localPub))
	if err != nil {
		return nil, fmt.Errorf("claim: generate musig2 nonces: %w", err)
	}
	s.localNonces = nonces
	return nonces, nil
}

// PubNonce returns the 66-byte public nonce to share with the
// counterparty.
func (s *Session) PubNonce() [musig2.PubNonceSize]byte {
	return s.localNonces.PubNonce
}

// Init finalises the session once both nonces are known: it builds the
// MuSig2 context over the two sorted public keys (tweaked by merkleRoot
// if set) and registers the counterparty's nonce.
func (s *Session) Init(remoteNonce [musig2.PubNonceSize]byte) error {
	s.remoteNonce = remoteNonce

	signers := []*btcec.PublicKey{s.localPub, s.remotePub}
	if lexCompare(s.localPub, s.remotePub) > 0 {
		signers = []*btcec.PublicKey{s.remotePub, s.localPub}
	}

	opts := []musig2.ContextOption{musig2.WithKnownSigners(signers)}
	if len(s.merkleRoot) > 0 {
		opts = append(opts, musig2.WithTaprootTweakCtx(s.merkleRoot))
	}

	ctx, err := musig2.NewContext(s.localPriv, false, opts...)
	if err != nil {
		return fmt.Errorf("claim: create musig2 context: %w", err)
	}
	s.ctx = ctx

	session, err := ctx.NewSession(musig2.WithPreGeneratedNonce(s.localNonces))
	if err != nil {
		return fmt.Errorf("claim: create musig2 session: %w", err)
	}
	if _, err := session.RegisterPubNonce(remoteNonce); err != nil {
		return fmt.Errorf("claim: register remote nonce: %w", err)
	}

	s.session = session
	return nil
}

// Sign produces this party's partial signature over msgHash.
func (s *Session) Sign(msgHash *chainhash.Hash) (*musig2.PartialSignature, error) {
	var hash [32]byte
	copy(hash[:], msgHash[:])
	return s.session.Sign(hash)
}

// CombineSignatures folds the counterparty's partial signature into the
// session and returns the final aggregate Schnorr signature.
func (s *Session) CombineSignatures(remotePartial *musig2.PartialSignature) (*schnorr.Signature, error) {
	final, err := s.session.CombineSig(remotePartial)
	if err != nil {
		return nil, fmt.Errorf("claim: combine musig2 signatures: %w", err)
	}
	return final, nil
}

// AggregatePublicKey returns the (possibly taproot-tweaked) aggregate key
// this session's signatures verify against.
func (s *Session) AggregatePublicKey() *btcec.PublicKey {
	return s.ctx.CombinedKey()
}

func lexCompare(a, b *btcec.PublicKey) int {
	ab := a.SerializeCompressed()
	bb := b.SerializeCompressed()
	for i := range ab {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
