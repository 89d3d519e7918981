package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

// AdminHandler serves the super-admin landing data.
type AdminHandler struct {
	accounts ports.AccountLister
}

func NewAdminHandler(accounts ports.AccountLister) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

type accountsResponse struct {
	Accounts []domain.Identity `json:"accounts"`
}

// ListAccounts returns every console account without password material.
//
// @Summary      List console accounts
// @Tags         super-admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountsResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /super-admin/accounts [get]
func (h *AdminHandler) ListAccounts(c echo.Context) error {
	accounts, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]domain.Identity, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Identity)
	}
	return c.JSON(http.StatusOK, accountsResponse{Accounts: out})
}
