package handlers

import (
	"strings"
	"time"

	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"
	"arbitra/internal/services/dispute"
	"arbitra/internal/utils/pagination"
	"arbitra/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// pathID reads a UUID route parameter.
func pathID(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.Validation("Invalid ID", map[string]string{name: "must be a valid UUID"})
	}
	return id.String(), nil
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.Validation("Invalid request format", nil)
	}
	return validation.Struct(dst)
}

// listQuery reads page, limit, status, from and to.
func listQuery(c *fiber.Ctx) (dispute.ListQuery, pagination.Pagination, error) {
	p := pagination.ParseFromRequest(c)
	q := dispute.ListQuery{Limit: p.Limit, Offset: p.Offset}

	if status := c.Query("status"); status != "" {
		q.Status = models.DisputeStatus(strings.ToLower(status))
		if !q.Status.Valid() {
			return q, p, apperrors.Validation("Invalid status filter", map[string]string{"status": "must be a valid dispute status"})
		}
	}

	var err error
	if q.From, err = queryTime(c, "from", false); err != nil {
		return q, p, err
	}
	if q.To, err = queryTime(c, "to", true); err != nil {
		return q, p, err
	}
	return q, p, nil
}

// queryTime accepts RFC 3339 or a plain date. A plain date used as an
// upper bound covers the whole day.
func queryTime(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid date filter", map[string]string{name: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// queryUUID reads an optional UUID query parameter.
func queryUUID(c *fiber.Ctx, name string) (*string, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid filter", map[string]string{name: "must be a valid UUID"})
	}
	s := id.String()
	return &s, nil
}
