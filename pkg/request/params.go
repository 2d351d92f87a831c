package request

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iamabdullah-dev/EdTech/pkg/apperrors"
)

// UUIDParam parses a path parameter as a UUID.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("Invalid " + name)
	}
	return id, nil
}

// BindJSON binds the body into dst and converts binding failures into a
// validation AppError listing the offending fields.
func BindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return apperrors.Validation("Request body is required")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			name := fe.Field()
			fields[name] = fe.Tag()
			names = append(names, name)
		}
		return apperrors.Validation("Invalid fields: " + strings.Join(names, ", ")).WithFields(fields)
	}
	return apperrors.Validation("Malformed request body")
}
