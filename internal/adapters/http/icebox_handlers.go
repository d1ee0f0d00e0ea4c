package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

const calculationsPath = "/icebox/calculations"

func calculationURL(id int64) string {
	return calculationsPath + "/" + strconv.FormatInt(id, 10)
}

func calculationID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

// ListCalculationsHandler returns a page of calculations.
func ListCalculationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		calcs, total, err := deps.Calculations.List(c.UserContext(), offset, limit)
		if err != nil {
			return writeDomainError(c, err)
		}
		if calcs == nil {
			calcs = []domain.Calculation{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: calcs, Pagination: pg})
	}
}

// CreateCalculationHandler registers a calculation from a form or JSON body
// and redirects to it. The owner defaults to the caller.
func CreateCalculationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.NewCalculation
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if in.OwnerEmail == "" {
			if user, ok := CurrentUser(c); ok {
				in.OwnerEmail = user.Email
			}
		}

		calc, err := deps.Calculations.Create(c.UserContext(), in)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Redirect(calculationURL(calc.ID), fiber.StatusSeeOther)
	}
}

// GetCalculationHandler returns one calculation.
func GetCalculationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := calculationID(c)
		if !ok {
			return errBadRequest(c, "invalid calculation id")
		}
		calc, err := deps.Calculations.Get(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(calc)
	}
}

// UpdateCalculationHandler sets the status when one is posted, otherwise
// starts layer processing, then redirects back to the calculation.
func UpdateCalculationHandler(deps *Dependencies) fiber.Handler {
	type updateRequest struct {
		Status string `json:"status" form:"status"`
	}

	return func(c *fiber.Ctx) error {
		id, ok := calculationID(c)
		if !ok {
			return errBadRequest(c, "invalid calculation id")
		}

		var in updateRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		if in.Status != "" {
			err := deps.Calculations.UpdateStatus(c.UserContext(), id, domain.CalculationStatus(in.Status))
			if err != nil {
				return writeDomainError(c, err)
			}
		} else {
			if err := deps.Calculations.ProcessLayers(c.UserContext(), id); err != nil {
				return writeDomainError(c, err)
			}
			LoggerFromCtx(c.UserContext()).Info("calculation queued for processing", "calculation_id", id)
		}
		return c.Redirect(calculationURL(id), fiber.StatusSeeOther)
	}
}

// CalculationArtifactsHandler lists the artifact groups of a calculation.
func CalculationArtifactsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := calculationID(c)
		if !ok {
			return errBadRequest(c, "invalid calculation id")
		}
		groups, err := deps.Calculations.ArtifactGroups(c.UserContext(), id)
		if err != nil {
			return writeDomainError(c, err)
		}
		if groups == nil {
			groups = []domain.ArtifactGroup{}
		}
		return c.JSON(groups)
	}
}
