// internal/handlers/common.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/druklands/landledger/internal/utils"
)

// callerID reads the authenticated identity the auth middleware put on
// the context. A missing or malformed value aborts with 401.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "invalid identity in token")
		return uuid.Nil, false
	}

	return userID, true
}

// tokenIDParam parses the numeric token identifier from the path.
func tokenIDParam(c *gin.Context) (int64, bool) {
	tokenID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || tokenID <= 0 {
		utils.BadRequestResponse(c, "token id must be a positive integer", nil)
		return 0, false
	}
	return tokenID, true
}
