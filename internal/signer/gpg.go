package signer

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// GPGSigner implements Signer using an OpenPGP private key
type GPGSigner struct {
	entity *openpgp.Entity
	armor  bool
	config *packet.Config
}

// NewGPGSigner creates a new GPG signer from a private key file
func NewGPGSigner(keyPath, passphrase string, armor bool) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	// Try to parse as armored key first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary key
		if _, serr := keyFile.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("failed to rewind key file: %w", serr)
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}

	entity := entityList[0]
	if entity.PrivateKey == nil {
		return nil, fmt.Errorf("key file holds no private key")
	}

	// Decrypt private key if passphrase provided
	if passphrase != "" {
		if entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
		}

		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return nil, fmt.Errorf("failed to decrypt subkey: %w", err)
				}
			}
		}
	} else if entity.PrivateKey.Encrypted {
		return nil, fmt.Errorf("private key is encrypted but no passphrase provided")
	}

	return NewGPGSignerFromEntity(entity, armor), nil
}

// NewGPGSignerFromEntity wraps an already decrypted entity
func NewGPGSignerFromEntity(entity *openpgp.Entity, armor bool) *GPGSigner {
	return &GPGSigner{
		entity: entity,
		armor:  armor,
		config: &packet.Config{DefaultHash: crypto.SHA512},
	}
}

// Begin starts a streaming detached-signature session. The signature is
// computed while data is written; nothing is buffered beyond the output.
func (s *GPGSigner) Begin(ctx context.Context) (Session, error) {
	pr, pw := io.Pipe()
	sess := &gpgSession{
		pw:   pw,
		done: make(chan struct{}),
	}

	go func() {
		defer close(sess.done)
		var err error
		if s.armor {
			err = openpgp.ArmoredDetachSign(&sess.out, s.entity, pr, s.config)
		} else {
			err = openpgp.DetachSign(&sess.out, s.entity, pr, s.config)
		}
		// Unblock pending writes if signing stopped early
		pr.CloseWithError(err)
		sess.err = err
	}()

	return sess, nil
}

type gpgSession struct {
	pw   *io.PipeWriter
	done chan struct{}
	out  bytes.Buffer
	err  error
}

func (s *gpgSession) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

func (s *gpgSession) Digest() ([]byte, error) {
	s.pw.Close()
	<-s.done
	if s.err != nil {
		return nil, fmt.Errorf("failed to create detached signature: %w", s.err)
	}
	return s.out.Bytes(), nil
}
