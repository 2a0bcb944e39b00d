// Package auth contains the credential primitives of the server: password
// hashing, bearer token issuing and parsing, opaque one-time tokens and the
// list of revoked bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. Out of range
// costs fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt hash of plaintext. Two calls with the same
// input produce different hashes.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	type result struct {
		hash []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		ch <- result{b, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if errors.Is(r.err, bcrypt.ErrPasswordTooLong) {
			return "", common.BadRequest("password must be at most 72 bytes long")
		}
		if r.err != nil {
			return "", fmt.Errorf("hash password: %w", r.err)
		}
		return string(r.hash), nil
	}
}

// Verify reports whether plaintext matches hash. A wrong password is not an
// error; errors are reserved for malformed hashes and cancellation.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	ch := make(chan error, 1)
	go func() {
		ch <- bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-ch:
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return false, nil
		}
		return false, fmt.Errorf("verify password: %w", err)
	}
}

// VerifyDummy spends the same work as Verify against a throwaway hash and
// always reports false. Used when the account does not exist so that the
// response time does not reveal it.
func (h *PasswordHasher) VerifyDummy(ctx context.Context, plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword(dummySecret(), h.cost)
	})
	_, _ = h.Verify(ctx, plaintext, string(h.dummy))
}
