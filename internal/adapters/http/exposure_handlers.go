package http

import (
	"bufio"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/pkg/metrics"
	"github.com/gemfoundation/exposure/internal/pkg/validation"
)

// exportAllowedMessage is returned by validate_export when the box is small enough.
const exportAllowedMessage = "Export is allowed with the given parameters"

// boxQuery holds the raw corner coordinates of a bounding-box request.
type boxQuery struct {
	Lat1 string `query:"lat1" json:"lat1" validate:"required,latitude"`
	Lng1 string `query:"lng1" json:"lng1" validate:"required,longitude"`
	Lat2 string `query:"lat2" json:"lat2" validate:"required,latitude"`
	Lng2 string `query:"lng2" json:"lng2" validate:"required,longitude"`
}

// parseBox reads lat1, lng1, lat2 and lng2 from the query string.
func parseBox(c *fiber.Ctx) (domain.BoundingBox, error) {
	var q boxQuery
	if err := c.QueryParser(&q); err != nil {
		return domain.BoundingBox{}, err
	}
	if err := validation.Struct(q); err != nil {
		return domain.BoundingBox{}, err
	}

	var box domain.BoundingBox
	for _, f := range []struct {
		raw string
		dst *float64
	}{
		{q.Lat1, &box.Lat1}, {q.Lng1, &box.Lng1}, {q.Lat2, &box.Lat2}, {q.Lng2, &box.Lng2},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return domain.BoundingBox{}, err
		}
		*f.dst = v
	}
	return box, nil
}

// boxError answers a malformed box query.
func boxError(c *fiber.Ctx, err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return errValidation(c, verr)
	}
	return errBadRequest(c, "invalid bounding box coordinates")
}

// boxResponse echoes the box back to the form.
func boxResponse(box domain.BoundingBox) fiber.Map {
	return fiber.Map{
		"lat1": box.Lat1,
		"lng1": box.Lng1,
		"lat2": box.Lat2,
		"lng2": box.Lng2,
	}
}

// BuildingFormHandler returns the box and the admin levels that hold grid
// data inside it, or 204 when there are none.
func BuildingFormHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := parseBox(c)
		if err != nil {
			return boxError(c, err)
		}

		levels, err := deps.Forms.AvailableAdminLevels(c.UserContext(), box)
		if err != nil {
			return writeDomainError(c, err)
		}
		if len(levels) == 0 {
			return c.SendStatus(fiber.StatusNoContent)
		}

		resp := boxResponse(box)
		resp["admin_levels"] = levels
		return c.JSON(resp)
	}
}

// PopulationFormHandler echoes the box for the population export form.
func PopulationFormHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := parseBox(c)
		if err != nil {
			return boxError(c, err)
		}
		return c.JSON(boxResponse(box))
	}
}

// ValidateExportHandler tells the map client whether a box may be exported.
func ValidateExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := parseBox(c)
		if err != nil {
			return boxError(c, err)
		}
		if err := deps.Exports.ValidateArea(box); err != nil {
			return errBoundingBox(c, err)
		}
		return c.SendString(exportAllowedMessage)
	}
}

// ExportBuildingHandler streams the building exposure of the box.
func ExportBuildingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := parseBox(c)
		if err != nil {
			return boxError(c, err)
		}
		return streamExport(c, deps, domain.ExportRequest{
			Kind:        domain.ExportBuilding,
			Format:      domain.OutputFormat(c.Query("outputType")),
			Residential: domain.Residential(c.Query("residential")),
			TimeOfDay:   domain.TimeOfDay(c.Query("timeOfDay")),
			AdminLevel:  domain.AdminLevel(c.Query("adminLevel")),
			Box:         box,
		})
	}
}

// ExportPopulationHandler streams the gridded population of the box.
func ExportPopulationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := parseBox(c)
		if err != nil {
			return boxError(c, err)
		}
		return streamExport(c, deps, domain.ExportRequest{
			Kind:   domain.ExportPopulation,
			Format: domain.OutputFormat(c.Query("outputType")),
			Box:    box,
		})
	}
}

// streamExport validates req and hands the response body to the export
// stream. The box is checked before anything else so an oversized
// selection is always answered with 403.
func streamExport(c *fiber.Ctx, deps *Dependencies, req domain.ExportRequest) error {
	kind := string(req.Kind)
	if err := deps.Exports.ValidateArea(req.Box); err != nil {
		metrics.ExportRejections.WithLabelValues(rejectionReason(err)).Inc()
		return errBoundingBox(c, err)
	}

	// The fiber.Ctx is recycled once the handler returns; the stream
	// writer below only touches values captured here.
	ctx := c.UserContext()
	st, err := deps.Exports.Stream(ctx, req)
	if err != nil {
		metrics.ExportRejections.WithLabelValues(rejectionReason(err)).Inc()
		return writeDomainError(c, err)
	}

	format := st.Request().Format
	user, _ := CurrentUser(c)
	metrics.ExportsStarted.WithLabelValues(kind, string(format)).Inc()
	LoggerFromCtx(ctx).Info("export started",
		"kind", kind, "format", format, "box", req.Box.String(), "user_id", user.ID)

	c.Set(fiber.HeaderContentType, exportContentType(format))
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="exposure_export.`+exportExtension(format)+`"`)
	c.Set(fiber.HeaderCacheControl, "no-store")

	start := time.Now()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = deps.Exports.Drain(ctx, st, w, user.ID)
		metrics.AssetsStreamed.WithLabelValues(kind).Add(float64(st.Records()))
		metrics.ExportDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if !st.Complete() {
			metrics.ExportsTruncated.WithLabelValues(kind).Inc()
		}
	})
	return nil
}

func exportContentType(format domain.OutputFormat) string {
	if format == domain.FormatCSV {
		return "text/csv"
	}
	return "text/plain"
}

func exportExtension(format domain.OutputFormat) string {
	if format == domain.FormatCSV {
		return "csv"
	}
	return "xml"
}

// rejectionReason labels ExportRejections.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidBoundingBox):
		return "bounding_box"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "format"
	case errors.Is(err, domain.ErrInvalidParameter):
		return "parameter"
	}
	return "other"
}
