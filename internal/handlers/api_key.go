package handlers

import (
	"time"

	"arbitra/internal/models"
	"arbitra/internal/services/apikey"
	"arbitra/internal/utils/pagination"
	"arbitra/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type APIKeyHandler struct {
	keyService *apikey.Service
}

func NewAPIKeyHandler(keyService *apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{keyService: keyService}
}

// issuedKey is the only response that carries the raw key.
type issuedKey struct {
	ID             string      `json:"id"`
	Key            string      `json:"key"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	BusinessID     *string     `json:"business_id,omitempty"`
	WhitelistedIPs []string    `json:"whitelisted_ips"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (h *APIKeyHandler) CreateAPIKey(c *fiber.Ctx) error {
	var input apikey.IssueInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	raw, key, err := h.keyService.Issue(c.UserContext(), input)
	if err != nil {
		return response.Fail(c, err)
	}
	ips := []string(key.WhitelistedIPs)
	if ips == nil {
		ips = []string{}
	}
	return response.Created(c, "API key created successfully", issuedKey{
		ID:             key.ID,
		Key:            raw,
		Email:          key.Email,
		Role:           key.Role,
		BusinessID:     key.BusinessID,
		WhitelistedIPs: ips,
		CreatedAt:      key.CreatedAt,
	})
}

func (h *APIKeyHandler) ListAPIKeys(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	keys, total, err := h.keyService.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return response.Fail(c, err)
	}
	p.Total = total
	return response.Success(c, "API keys retrieved successfully", pagination.Response(p, keys))
}

func (h *APIKeyHandler) DeactivateAPIKey(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	if err := h.keyService.Deactivate(c.UserContext(), id); err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "API key deactivated", nil)
}

func (h *APIKeyHandler) UpdateWhitelistedIPs(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input apikey.WhitelistInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}
	if err := h.keyService.UpdateWhitelist(c.UserContext(), id, input.WhitelistedIPs); err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Whitelisted IPs updated", nil)
}
