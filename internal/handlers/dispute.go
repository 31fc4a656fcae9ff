package handlers

import (
	"arbitra/internal/services/dispute"
	"arbitra/internal/services/stats"
	"arbitra/internal/utils"
	"arbitra/internal/utils/pagination"
	"arbitra/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type DisputeHandler struct {
	disputeService *dispute.Service
	statsService   *stats.Service
}

func NewDisputeHandler(disputeService *dispute.Service, statsService *stats.Service) *DisputeHandler {
	return &DisputeHandler{disputeService: disputeService, statsService: statsService}
}

func (h *DisputeHandler) CreateDispute(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.CreateInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	d, err := h.disputeService.Create(c.UserContext(), actor, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Created(c, "Dispute created successfully", d)
}

func (h *DisputeHandler) ListDisputes(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	q, p, err := listQuery(c)
	if err != nil {
		return response.Fail(c, err)
	}

	items, total, err := h.disputeService.List(c.UserContext(), actor, q)
	if err != nil {
		return response.Fail(c, err)
	}
	p.Total = total
	return response.Success(c, "Disputes retrieved successfully", pagination.Response(p, items))
}

func (h *DisputeHandler) ListByProfile(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	profileID, err := pathID(c, "profileId")
	if err != nil {
		return response.Fail(c, err)
	}
	q, p, err := listQuery(c)
	if err != nil {
		return response.Fail(c, err)
	}

	items, total, err := h.disputeService.ListByProfile(c.UserContext(), actor, profileID, q)
	if err != nil {
		return response.Fail(c, err)
	}
	p.Total = total
	return response.Success(c, "Disputes retrieved successfully", pagination.Response(p, items))
}

func (h *DisputeHandler) GetDispute(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}

	detail, err := h.disputeService.Get(c.UserContext(), actor, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Dispute retrieved successfully", detail)
}

func (h *DisputeHandler) UpdateDispute(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.UpdateInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	d, err := h.disputeService.Update(c.UserContext(), actor, id, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Dispute updated successfully", d)
}

func (h *DisputeHandler) AddEvidence(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.EvidenceInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	evidence, err := h.disputeService.AddEvidence(c.UserContext(), actor, id, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Created(c, "Evidence added successfully", evidence)
}

func (h *DisputeHandler) AddComment(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}
	var input dispute.CommentInput
	if err := bind(c, &input); err != nil {
		return response.Fail(c, err)
	}

	comment, err := h.disputeService.AddComment(c.UserContext(), actor, id, input)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Created(c, "Comment added successfully", comment)
}

func (h *DisputeHandler) GetHistory(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}

	history, err := h.disputeService.History(c.UserContext(), actor, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Dispute history retrieved successfully", history)
}

func (h *DisputeHandler) CancelDispute(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return response.Fail(c, err)
	}

	d, err := h.disputeService.Cancel(c.UserContext(), actor, id)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Dispute canceled successfully", d)
}

func (h *DisputeHandler) GetStats(c *fiber.Ctx) error {
	actor, err := utils.GetActor(c)
	if err != nil {
		return response.Fail(c, err)
	}
	q, err := statsQuery(c)
	if err != nil {
		return response.Fail(c, err)
	}

	result, err := h.statsService.DisputeStats(c.UserContext(), actor, q)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.Success(c, "Dispute statistics retrieved successfully", result)
}

func statsQuery(c *fiber.Ctx) (stats.Query, error) {
	var q stats.Query
	var err error
	if q.BusinessID, err = queryUUID(c, "business_id"); err != nil {
		return q, err
	}
	if q.ArbitratorID, err = queryUUID(c, "arbitrator_id"); err != nil {
		return q, err
	}
	if q.From, err = queryTime(c, "from", false); err != nil {
		return q, err
	}
	if q.To, err = queryTime(c, "to", true); err != nil {
		return q, err
	}
	return q, nil
}
