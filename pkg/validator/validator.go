package validator

import (
	"log"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var partnerPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

func RegisterGinValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register adds json field names and the custom tags to v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("partner", partnerValidator)
	if err != nil {
		log.Fatal("register partner validator failed")
	}
}

// partnerValidator accepts partner slugs such as "alwaseet", case and
// surrounding spaces are ignored.
var partnerValidator validator.Func = func(fl validator.FieldLevel) bool {
	partner := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	return partnerPattern.MatchString(partner)
}
