package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/middleware"
	"github.com/liu0521613/StudArch-sub001/internal/models"
)

func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.CurrentPrincipal(c)
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("value must be positive")
	}
	return value, nil
}
