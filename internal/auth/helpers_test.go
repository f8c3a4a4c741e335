package auth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testEpoch = time.Unix(1_700_000_000, 0).UTC()

func newBootstrappedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if _, err := Bootstrap(context.Background(), store.Catalog(context.Background()), nil); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return store
}

func newTestService(t *testing.T, store Store, opts ...TokenOption) *Service {
	t.Helper()
	tokens, err := NewTokens(testSecret, opts...)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	hasher, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	svc, err := NewService(store, tokens, hasher)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedIdentity(t *testing.T, store Store, username, roleCode string) *Identity {
	t.Helper()
	ctx := context.Background()
	role, err := store.Catalog(ctx).RoleByCode(ctx, roleCode)
	if err != nil {
		t.Fatalf("RoleByCode(%s): %v", roleCode, err)
	}
	identity := &Identity{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		Status:       StatusActive,
	}
	if err := store.Identities(ctx).Create(ctx, identity); err != nil {
		t.Fatalf("Create(%s): %v", username, err)
	}
	return identity
}

func principalFor(identity *Identity) *Principal {
	return &Principal{Identity: identity, Authenticated: true}
}
