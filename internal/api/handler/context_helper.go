package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MTES-MCT/mobilic-api-sub000/internal/dto"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/response"
)

// MustGetUserID extracts the user_id set by the JWT middleware.
// On failure it writes a 401 and returns false; callers return immediately.
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// mustGetCompanyID parses the :id path parameter
func mustGetCompanyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "invalid company id")
		return 0, false
	}
	return id, true
}

// mustGetDate parses an optional YYYY-MM-DD value, empty means today in loc
func mustGetDate(c *gin.Context, value string, loc *time.Location, now func() time.Time) (time.Time, bool) {
	if value == "" {
		n := now().In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc), true
	}
	d, err := dto.ParseDate(value, loc)
	if err != nil {
		response.BadRequest(c, 10001, "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}
