// Package apikey authenticates API key callers and issues new keys.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"
	"arbitra/internal/repositories"
	"arbitra/internal/utils"
	"arbitra/internal/validation"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Service struct {
	repo repositories.APIKeyRepository
	now  func() time.Time
}

func NewService(repo repositories.APIKeyRepository) *Service {
	if repo == nil {
		panic("api key repository is required")
	}
	return &Service{repo: repo, now: time.Now}
}

// Authenticate resolves a raw key presented from clientIP into an actor.
func (s *Service) Authenticate(ctx context.Context, rawKey, clientIP string) (*models.Actor, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, apperrors.Unauthorized("API key is required")
	}

	key, err := s.repo.FindByDigest(ctx, utils.DigestAPIKey(rawKey))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid API key")
		}
		return nil, apperrors.Wrap(err, "failed to look up API key")
	}
	if !key.IsActive {
		return nil, apperrors.Unauthorized("API key is inactive")
	}
	if !IPAllowed(key.WhitelistedIPs, clientIP) {
		slog.Warn("api key used from a non-whitelisted address",
			"module", "apikey",
			"operation", "authenticate",
			"outcome", "denied",
			"key_id", key.ID,
			"client_ip", clientIP,
		)
		return nil, apperrors.Forbidden("IP address not allowed for this API key")
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID, s.now().UTC()); err != nil {
		slog.Warn("failed to record api key usage",
			"module", "apikey",
			"operation", "touch",
			"key_id", key.ID,
			"error", err,
		)
	}
	return key.Actor(), nil
}

// IPAllowed reports whether ip matches the whitelist. An empty whitelist
// allows every address. Entries are exact addresses or CIDR ranges.
func IPAllowed(whitelist []string, ip string) bool {
	if len(whitelist) == 0 {
		return true
	}
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return false
	}
	for _, entry := range whitelist {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil && network.Contains(addr) {
				return true
			}
			continue
		}
		if allowed := net.ParseIP(entry); allowed != nil && allowed.Equal(addr) {
			return true
		}
	}
	return false
}

type IssueInput struct {
	Email          string      `json:"email" validate:"required,email"`
	Role           models.Role `json:"role" validate:"required,oneof=admin user arbitrator"`
	BusinessID     *string     `json:"business_id" validate:"omitempty,uuid"`
	WhitelistedIPs []string    `json:"whitelisted_ips"`
}

// Issue creates a key and returns the raw value. The raw key is not stored
// and cannot be recovered later.
func (s *Service) Issue(ctx context.Context, in IssueInput) (string, *models.APIKey, error) {
	if err := validation.Struct(in); err != nil {
		return "", nil, err
	}
	if in.Role == models.RoleUser && in.BusinessID == nil {
		return "", nil, apperrors.Validation("User keys must belong to a business", map[string]string{"business_id": "is required"})
	}
	if err := validateWhitelist(in.WhitelistedIPs); err != nil {
		return "", nil, err
	}

	raw, err := utils.GenerateAPIKey()
	if err != nil {
		return "", nil, apperrors.Wrap(err, "failed to generate API key")
	}
	now := s.now().UTC()
	key := &models.APIKey{
		ID:             uuid.NewString(),
		KeyDigest:      utils.DigestAPIKey(raw),
		Email:          strings.TrimSpace(in.Email),
		Role:           in.Role,
		BusinessID:     in.BusinessID,
		IsActive:       true,
		WhitelistedIPs: pq.StringArray(in.WhitelistedIPs),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return "", nil, apperrors.Conflict("API key already exists")
		}
		return "", nil, apperrors.Wrap(err, "failed to store API key")
	}
	return raw, key, nil
}

// List returns one page of keys, newest first, with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.APIKey, int64, error) {
	keys, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to list API keys")
	}
	return keys, total, nil
}

// Deactivate disables a key. Requests presenting it are rejected from then
// on. Deactivating an inactive key succeeds.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("API key not found")
		}
		return apperrors.Wrap(err, "failed to deactivate API key")
	}
	slog.Info("api key deactivated",
		"module", "apikey",
		"operation", "deactivate",
		"outcome", "success",
		"key_id", id,
	)
	return nil
}

type WhitelistInput struct {
	WhitelistedIPs []string `json:"whitelisted_ips" validate:"required"`
}

// UpdateWhitelist replaces the addresses a key may be used from. An empty
// list lifts the restriction.
func (s *Service) UpdateWhitelist(ctx context.Context, id string, ips []string) error {
	if err := validateWhitelist(ips); err != nil {
		return err
	}
	cleaned := make([]string, 0, len(ips))
	for _, entry := range ips {
		cleaned = append(cleaned, strings.TrimSpace(entry))
	}
	if err := s.repo.UpdateWhitelist(ctx, id, cleaned, s.now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("API key not found")
		}
		return apperrors.Wrap(err, "failed to update API key whitelist")
	}
	slog.Info("api key whitelist updated",
		"module", "apikey",
		"operation", "update_whitelist",
		"outcome", "success",
		"key_id", id,
		"entries", len(cleaned),
	)
	return nil
}

func validateWhitelist(ips []string) error {
	for _, entry := range ips {
		if !validIPEntry(entry) {
			return apperrors.Validation("Invalid IP whitelist", map[string]string{"whitelisted_ips": fmt.Sprintf("%q is not an IP address or CIDR range", entry)})
		}
	}
	return nil
}

func validIPEntry(entry string) bool {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}
