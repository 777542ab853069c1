package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"devnotes/api/internal/config"
	"devnotes/api/internal/repository"
)

// AdminEmailsSettingKey is the settings row holding the dynamic allow-list.
const AdminEmailsSettingKey = "admin_emails"

const adminCacheKey = "authz:admin_emails"
const adminCacheTTL = 30 * time.Second

type settingStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Authorizer decides admin privilege from email membership, recomputed per
// request: a static deploy-time list OR'ed with a dynamic list stored in
// settings. The User.Role column is never consulted.
type Authorizer struct {
	static   map[string]struct{}
	settings settingStore
	cache    *redis.Client
	log      zerolog.Logger
}

func NewAuthorizer(sec config.SecurityConfig, settings settingStore, cache *redis.Client, log zerolog.Logger) *Authorizer {
	static := make(map[string]struct{}, len(sec.AdminEmails)+1)
	for _, email := range sec.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			static[email] = struct{}{}
		}
	}
	// The bootstrap admin must hold privilege even when the deploy-time
	// list omits it, or a fresh install could end up with zero admins.
	if email := strings.ToLower(strings.TrimSpace(sec.SeedAdminEmail)); email != "" {
		static[email] = struct{}{}
	}
	return &Authorizer{
		static:   static,
		settings: settings,
		cache:    cache,
		log:      log,
	}
}

// IsAdmin never fails: when the dynamic store is unreachable it degrades to
// the static list, which guarantees the bootstrap admin keeps working.
func (a *Authorizer) IsAdmin(ctx context.Context, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}

	if _, ok := a.static[email]; ok {
		return true
	}

	dynamic, err := a.dynamicAdmins(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("dynamic admin list unavailable, using static list only")
		return false
	}

	for _, admin := range dynamic {
		if admin == email {
			return true
		}
	}
	return false
}

// StaticAdmins returns the deploy-time list for display in the back office.
func (a *Authorizer) StaticAdmins() []string {
	out := make([]string, 0, len(a.static))
	for email := range a.static {
		out = append(out, email)
	}
	return out
}

// DynamicAdmins reads the editable allow-list, empty when never written.
func (a *Authorizer) DynamicAdmins(ctx context.Context) ([]string, error) {
	return a.dynamicAdmins(ctx)
}

func (a *Authorizer) dynamicAdmins(ctx context.Context) ([]string, error) {
	if a.cache != nil {
		if raw, err := a.cache.Get(ctx, adminCacheKey).Bytes(); err == nil {
			var emails []string
			if err := json.Unmarshal(raw, &emails); err == nil {
				return emails, nil
			}
		}
	}

	raw, err := a.settings.Get(ctx, AdminEmailsSettingKey)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var emails []string
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil, err
	}
	for i, email := range emails {
		emails[i] = strings.ToLower(strings.TrimSpace(email))
	}

	if a.cache != nil {
		if raw, err := json.Marshal(emails); err == nil {
			if err := a.cache.Set(ctx, adminCacheKey, raw, adminCacheTTL).Err(); err != nil {
				a.log.Debug().Err(err).Msg("admin list cache write failed")
			}
		}
	}

	return emails, nil
}

// SetDynamicAdmins replaces the editable allow-list. Takes effect on the
// next request without re-login, since privilege is recomputed every time.
func (a *Authorizer) SetDynamicAdmins(ctx context.Context, emails []string) error {
	normalized := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			normalized = append(normalized, email)
		}
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	if err := a.settings.Set(ctx, AdminEmailsSettingKey, raw); err != nil {
		return err
	}

	if a.cache != nil {
		if err := a.cache.Del(ctx, adminCacheKey).Err(); err != nil {
			a.log.Debug().Err(err).Msg("admin list cache invalidation failed")
		}
	}
	return nil
}
