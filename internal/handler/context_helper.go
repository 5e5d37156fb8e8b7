package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/middleware"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

// actorID is the authenticated user's id, or empty for anonymous requests.
func actorID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query(key))); err == nil {
		return v
	}
	return fallback
}

// scope reads the hostel and semester a report is for.
func scope(c *gin.Context) (hostelID, semesterID string, ok bool) {
	hostelID = strings.TrimSpace(c.Query("hostelId"))
	semesterID = strings.TrimSpace(c.Query("semesterId"))
	if hostelID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "hostelId is required"))
		return "", "", false
	}
	return hostelID, semesterID, true
}
