package facility

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

// RegisterRoutes declares the facility routes with their security policies.
// Facility administration is tenant-level: OWNER and ADMIN only. Reads are
// open to any authenticated member of the tenant. The extra middleware
// (tenant-scoped DB access) runs after the chain has established the tenant.
func (h *Handler) RegisterRoutes(api *echo.Group, chain *authz.Chain, extra ...echo.MiddlewareFunc) {
	read := append([]echo.MiddlewareFunc{chain.Middleware(authz.RouteSecurityPolicy{})}, extra...)
	admin := append([]echo.MiddlewareFunc{chain.Middleware(authz.RouteSecurityPolicy{
		AllowedRoles: []string{authz.RoleOwner, authz.RoleAdmin},
	})}, extra...)

	api.GET("/facilities", h.ListFacilities, read...)
	api.GET("/facilities/:id", h.GetFacility, read...)

	api.POST("/facilities", h.CreateFacility, admin...)
	api.PUT("/facilities/:id", h.UpdateFacility, admin...)
	api.DELETE("/facilities/:id", h.DeleteFacility, admin...)

	api.GET("/facilities/:id/staff", h.ListAssignments, admin...)
	api.POST("/facilities/:id/staff", h.AssignStaff, admin...)
	api.DELETE("/facilities/:id/staff/:userId", h.UnassignStaff, admin...)
}

func (h *Handler) CreateFacility(c echo.Context) error {
	var f Facility
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateFacility(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFacility(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	f, err := h.svc.GetFacility(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "facility not found")
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListFacilities(c echo.Context) error {
	pg := pagination.FromContext(c)
	facilities, total, err := h.svc.ListFacilities(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(facilities, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateFacility(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var f Facility
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.ID = id
	if err := h.svc.UpdateFacility(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFacility(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteFacility(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	a, err := h.svc.AssignStaff(c.Request().Context(), id, body.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UnassignStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.UnassignStaff(c.Request().Context(), id, c.Param("userId")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "assignment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	assignments, err := h.svc.ListAssignments(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, assignments)
}
