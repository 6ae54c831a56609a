package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/db"
)

// PackageHandler serves the subscription package catalog.
type PackageHandler struct {
	packages db.PackageRepository
	logger   *zap.Logger
}

// NewPackageHandler creates a new PackageHandler.
func NewPackageHandler(packages db.PackageRepository, logger *zap.Logger) *PackageHandler {
	return &PackageHandler{packages: packages, logger: logger}
}

// ListPackages handles GET /api/v1/packages.
func (h *PackageHandler) ListPackages(c *gin.Context) {
	pkgs, err := h.packages.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list packages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load packages"})
		return
	}
	c.JSON(http.StatusOK, pkgs)
}
