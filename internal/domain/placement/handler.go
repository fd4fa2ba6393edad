package placement

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/authz"
	"github.com/carebase/carebase/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes nests placements under their facility so the facility gate
// can read the facility identifier from the path. STAFF principals need an
// assignment to the facility; OWNER and ADMIN have tenant-wide access.
func (h *Handler) RegisterRoutes(api *echo.Group, chain *authz.Chain, extra ...echo.MiddlewareFunc) {
	scoped := append([]echo.MiddlewareFunc{chain.Middleware(authz.RouteSecurityPolicy{
		AllowedRoles:          []string{authz.RoleOwner, authz.RoleAdmin, authz.RoleStaff},
		RequireFacilityAccess: true,
	})}, extra...)

	api.GET("/facilities/:facilityId/placements", h.ListPlacements, scoped...)
	api.GET("/facilities/:facilityId/placements/:id", h.GetPlacement, scoped...)
	api.POST("/facilities/:facilityId/placements", h.CreatePlacement, scoped...)
	api.PUT("/facilities/:facilityId/placements/:id", h.UpdatePlacement, scoped...)
	api.DELETE("/facilities/:facilityId/placements/:id", h.DeletePlacement, scoped...)
}

func (h *Handler) CreatePlacement(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("facilityId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	var p PlacementInfo
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.FacilityID = facilityID
	if err := h.svc.CreatePlacement(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlacement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPlacement(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "placement not found")
	}
	if p.FacilityID.String() != c.Param("facilityId") {
		return echo.NewHTTPError(http.StatusNotFound, "placement not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPlacements(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("facilityId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid facility id")
	}
	pg := pagination.FromContext(c)
	placements, total, err := h.svc.ListPlacements(c.Request().Context(), facilityID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(placements, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePlacement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p PlacementInfo
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePlacement(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePlacement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePlacement(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
