// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package memory_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/memory"
)

// newSession builds a session with the given idle timeout, bypassing the
// service so the suite can use very short timeouts.
func newSession(tokenHash string, idleTimeout time.Duration) *auth.Session {
	user := &auth.User{ID: 1, Email: "alice@x.com", Role: auth.RoleUser}
	s, err := auth.NewSession(user, tokenHash, idleTimeout)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("SessionStore", func() {
	var (
		ctx   context.Context
		store *memory.SessionStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewSessionStore()
	})

	Describe("Create and Get", func() {
		It("returns a stored live session", func() {
			s := newSession("hash1", time.Minute)
			Expect(store.Create(ctx, s)).To(Succeed())

			got, err := store.Get(ctx, "hash1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal(int64(1)))
			Expect(got.Role).To(Equal(auth.RoleUser))
		})

		It("reports ErrNotFound for an unknown token", func() {
			_, err := store.Get(ctx, "nope")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects a duplicate token hash", func() {
			Expect(store.Create(ctx, newSession("hash1", time.Minute))).To(Succeed())
			Expect(store.Create(ctx, newSession("hash1", time.Minute))).NotTo(Succeed())
		})

		It("hands out copies, not the stored session", func() {
			Expect(store.Create(ctx, newSession("hash1", time.Minute))).To(Succeed())

			got, err := store.Get(ctx, "hash1")
			Expect(err).NotTo(HaveOccurred())
			got.Role = auth.RoleAdmin

			again, err := store.Get(ctx, "hash1")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Role).To(Equal(auth.RoleUser))
		})
	})

	Describe("expiry state machine", func() {
		It("moves Active to Expired once the idle timeout elapses", func() {
			Expect(store.Create(ctx, newSession("hash1", 30*time.Millisecond))).To(Succeed())

			_, err := store.Get(ctx, "hash1")
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(50 * time.Millisecond)

			_, err = store.Get(ctx, "hash1")
			Expect(err).To(MatchError(auth.ErrSessionExpired))
		})

		It("treats Expired as absorbing: the token is never revivable", func() {
			Expect(store.Create(ctx, newSession("hash1", 30*time.Millisecond))).To(Succeed())
			time.Sleep(50 * time.Millisecond)

			_, err := store.Get(ctx, "hash1")
			Expect(err).To(MatchError(auth.ErrSessionExpired))

			// A second read of the same token is plain absence.
			_, err = store.Get(ctx, "hash1")
			Expect(err).To(MatchError(auth.ErrNotFound))

			// Touch cannot bring it back either.
			Expect(store.Touch(ctx, "hash1", time.Now())).To(MatchError(auth.ErrNotFound))
		})

		It("touch keeps a session alive past its original deadline", func() {
			Expect(store.Create(ctx, newSession("hash1", 80*time.Millisecond))).To(Succeed())

			for range 3 {
				time.Sleep(40 * time.Millisecond)
				Expect(store.Touch(ctx, "hash1", time.Now())).To(Succeed())
			}

			_, err := store.Get(ctx, "hash1")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Destroy", func() {
		It("is idempotent for unknown and already destroyed tokens", func() {
			Expect(store.Create(ctx, newSession("hash1", time.Minute))).To(Succeed())

			Expect(store.Destroy(ctx, "hash1")).To(Succeed())
			Expect(store.Destroy(ctx, "hash1")).To(Succeed())
			Expect(store.Destroy(ctx, "neverexisted")).To(Succeed())

			_, err := store.Get(ctx, "hash1")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("DeleteExpired", func() {
		It("evicts only expired sessions", func() {
			Expect(store.Create(ctx, newSession("stale", 20*time.Millisecond))).To(Succeed())
			Expect(store.Create(ctx, newSession("fresh", time.Minute))).To(Succeed())

			time.Sleep(40 * time.Millisecond)

			n, err := store.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
			Expect(store.Len()).To(Equal(1))

			_, err = store.Get(ctx, "fresh")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("concurrency", func() {
		It("serializes touches and reads on one token", func() {
			Expect(store.Create(ctx, newSession("hash1", time.Minute))).To(Succeed())

			var wg sync.WaitGroup
			for range 32 {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_ = store.Touch(ctx, "hash1", time.Now())
				}()
				go func() {
					defer wg.Done()
					_, _ = store.Get(ctx, "hash1")
				}()
			}
			wg.Wait()

			got, err := store.Get(ctx, "hash1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal(int64(1)))
		})

		It("keeps creates and destroys on distinct tokens independent", func() {
			var wg sync.WaitGroup
			for i := range 16 {
				hash := auth.HashSessionToken(string(rune('a' + i)))
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					s := newSession(hash, time.Minute)
					Expect(store.Create(ctx, s)).To(Succeed())
					Expect(store.Destroy(ctx, hash)).To(Succeed())
				}()
			}
			wg.Wait()
			Expect(store.Len()).To(Equal(0))
		})
	})
})
