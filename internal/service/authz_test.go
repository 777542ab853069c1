package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"devnotes/api/internal/config"
	"devnotes/api/internal/repository"
)

type fakeSettingStore struct {
	values  map[string][]byte
	failing bool
}

func newFakeSettingStore() *fakeSettingStore {
	return &fakeSettingStore{values: make(map[string][]byte)}
}

func (f *fakeSettingStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.failing {
		return nil, errors.New("store unreachable")
	}
	value, ok := f.values[key]
	if !ok {
		return nil, repository.ErrSettingNotFound
	}
	return value, nil
}

func (f *fakeSettingStore) Set(_ context.Context, key string, value []byte) error {
	if f.failing {
		return errors.New("store unreachable")
	}
	f.values[key] = value
	return nil
}

func TestIsAdminStaticList(t *testing.T) {
	authz := NewAuthorizer(config.SecurityConfig{AdminEmails: []string{"Root@Example.com", " ops@example.com "}}, newFakeSettingStore(), nil, zerolog.Nop())

	ctx := context.Background()
	if !authz.IsAdmin(ctx, "root@example.com") {
		t.Error("static admin should be recognized")
	}
	if !authz.IsAdmin(ctx, "ROOT@EXAMPLE.COM") {
		t.Error("static admin check should be case-insensitive")
	}
	if !authz.IsAdmin(ctx, "ops@example.com") {
		t.Error("whitespace in the static list should be trimmed")
	}
	if authz.IsAdmin(ctx, "user@example.com") {
		t.Error("unlisted email must not be admin")
	}
	if authz.IsAdmin(ctx, "") {
		t.Error("empty email must not be admin")
	}
}

func TestSeedAdminIsAlwaysAdmin(t *testing.T) {
	// The deploy-time list is empty on purpose: the seed admin's
	// privilege must not depend on the email being listed twice.
	cfg := testConfig()
	authz := NewAuthorizer(cfg.Security, newFakeSettingStore(), nil, zerolog.Nop())

	ctx := context.Background()
	if !authz.IsAdmin(ctx, cfg.Security.SeedAdminEmail) {
		t.Errorf("seed admin %q should hold admin privilege", cfg.Security.SeedAdminEmail)
	}
	if !authz.IsAdmin(ctx, "ADMIN@Example.Com") {
		t.Error("seed admin check should be case-insensitive")
	}
	if authz.IsAdmin(ctx, "user@example.com") {
		t.Error("unlisted email must not be admin")
	}
}

func TestIsAdminDynamicListWithoutRelogin(t *testing.T) {
	settings := newFakeSettingStore()
	authz := NewAuthorizer(config.SecurityConfig{}, settings, nil, zerolog.Nop())

	ctx := context.Background()
	if authz.IsAdmin(ctx, "new@example.com") {
		t.Fatal("email should not be admin before being added")
	}

	if err := authz.SetDynamicAdmins(ctx, []string{"New@Example.com"}); err != nil {
		t.Fatalf("set dynamic admins: %v", err)
	}

	// Privilege is recomputed per request; no re-login involved.
	if !authz.IsAdmin(ctx, "new@example.com") {
		t.Error("email added to the dynamic list should be admin immediately")
	}
}

func TestIsAdminFallsBackToStaticWhenDynamicUnreachable(t *testing.T) {
	settings := newFakeSettingStore()
	settings.failing = true
	authz := NewAuthorizer(config.SecurityConfig{AdminEmails: []string{"root@example.com"}}, settings, nil, zerolog.Nop())

	ctx := context.Background()
	if !authz.IsAdmin(ctx, "root@example.com") {
		t.Error("static admin must survive a dynamic store outage")
	}
	if authz.IsAdmin(ctx, "dynamic@example.com") {
		t.Error("unreachable dynamic store must not grant privilege")
	}
}

func TestSetDynamicAdminsNormalizes(t *testing.T) {
	settings := newFakeSettingStore()
	authz := NewAuthorizer(config.SecurityConfig{}, settings, nil, zerolog.Nop())

	if err := authz.SetDynamicAdmins(context.Background(), []string{"  A@B.Com ", "", "c@d.com"}); err != nil {
		t.Fatalf("set dynamic admins: %v", err)
	}

	var stored []string
	if err := json.Unmarshal(settings.values[AdminEmailsSettingKey], &stored); err != nil {
		t.Fatalf("unmarshal stored list: %v", err)
	}
	if len(stored) != 2 || stored[0] != "a@b.com" || stored[1] != "c@d.com" {
		t.Errorf("stored list = %v, want [a@b.com c@d.com]", stored)
	}
}
