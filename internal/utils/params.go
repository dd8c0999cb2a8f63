package utils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func GetBoardID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "board_id")
}

func GetTaskID(ctx *gin.Context) (uint, error) {
	return parseIDParam(ctx, "task_id")
}

func parseIDParam(ctx *gin.Context, name string) (uint, error) {
	idStr := ctx.Param(name)

	if idStr == "" {
		return 0, errors.New("Missing " + name)
	}

	id, err := strconv.ParseUint(idStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid " + name)
	}

	return uint(id), nil
}

// Normalize is the canonical form for board names and task titles: trimmed
// and lower-cased. Uniqueness comparisons and storage both use it; display
// layers may re-case for presentation.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
