package signer

import (
	"context"
	"io"
)

// Signer produces detached signatures over a stream of bytes
type Signer interface {
	// Begin starts a signing session. A failing or unavailable signer
	// returns an error and no session.
	Begin(ctx context.Context) (Session, error)
}

// Session accumulates the signed content through Write calls (in any
// chunking) and returns the detached signature from Digest.
type Session interface {
	io.Writer

	// Digest finishes the session and returns the signature bytes.
	// It must be called exactly once.
	Digest() ([]byte, error)
}
