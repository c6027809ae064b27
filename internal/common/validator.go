package common

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// ValidateStruct checks the `validate` tags of i.
func ValidateStruct(i interface{}) error {
	return validate.Struct(i)
}

type GenericEchoValidator struct{}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	if err := ValidateStruct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request: %v", err))
	}
	return nil
}
