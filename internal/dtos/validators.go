package dtos

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Session tokens are client-generated and land in URLs and signaling
// addresses, so the accepted shape is pinned down here rather than left
// to length checks alone.
var sessionTokenPattern = regexp.MustCompile(`^[a-z0-9-]{8,64}$`)

// RegisterValidators installs the custom binding rules. Call once before
// mounting routes.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("sessiontoken", func(fl validator.FieldLevel) bool {
		return sessionTokenPattern.MatchString(fl.Field().String())
	})
}
