package handlers

import (
	"arbitra/internal/services/dispute"
	"arbitra/internal/services/stats"
	"arbitra/internal/utils"
	"arbitra/internal/utils/pagination"
	"arbitra/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// ArbitrationHandler serves the arbitrator queue and case decisions.
type ArbitrationHandler struct {
	disputeService *dispute.Service
	statsService   *stats.Service
}

func NewArbitrationHandler(disputeService *dispute.Service, statsService *stats.Service) *ArbitrationHandler {
	return &ArbitrationHandler{disputeService: disputeService, statsService: statsService}
}

func (h *ArbitrationHandler) ListCases(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	q, p, err := listQuery(c)
	if err != nil {
		return response.Fail(c, err)
	}
	arbitratorID, err := queryUUID(c, "arbitrator_id")
	if err != nil {
		return response.Fail(c, err)
	}
	if arbitratorID != nil {
		q.ArbitratorID = *arbitratorID
	}

	items, total, err := h.disputeService.ListArbitratorCases(c.UserContext(), actor, q)
	if err != nil {
		return response.Fail(c, err)
	}
	p.Total = total
	return response.Success(c, "Cases retrieved successfully", pagination.Response(p, items))
}

func (h *ArbitrationHandler) GetStats(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	q, err := statsQuery(c)
	if err != nil {
		return response.Fail(c, err)
	}

	result, err := h.statsService.ArbitrationStats(c.UserContext(), actor, q)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Arbitration statistics retrieved successfully", result)
}

func (h *ArbitrationHandler) AssignArbitrator(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.AssignInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	d, err := h.disputeService.AssignArbitrator(c.UserContext(), actor, id, input.ArbitratorID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Arbitrator assigned successfully", d)
}

func (h *ArbitrationHandler) ReviewCase(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.ReviewInput
	if len(c.Body()) > 0 {
		if err := bind(c, &input); err != nil {
			return response.Fail(c, err)
		}
	}

	d, err := h.disputeService.Review(c.UserContext(), actor, id, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Case review started", d)
}

func (h *ArbitrationHandler) ResolveCase(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.ResolveInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	d, err := h.disputeService.Resolve(c.UserContext(), actor, id, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Case resolved successfully", d)
}

func (h *ArbitrationHandler) RejectCase(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.RejectInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	d, err := h.disputeService.Reject(c.UserContext(), actor, id, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Case rejected successfully", d)
}
