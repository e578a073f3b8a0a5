package handlers

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"stockledger/internal/infrastructure/http/v1/dto"
)

// RegisterValidators installs the decimal rules and custom types on gin's
// validator. It is safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return registerValidators(v)
}

func registerValidators(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterCustomTypeFunc(dateValue, dto.Date{})

	if err := v.RegisterValidation("decimal_positive", decimalRule(func(d decimal.Decimal) bool {
		return d.IsPositive()
	})); err != nil {
		return err
	}
	return v.RegisterValidation("decimal_non_negative", decimalRule(func(d decimal.Decimal) bool {
		return !d.IsNegative()
	}))
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func dateValue(field reflect.Value) any {
	if d, ok := field.Interface().(dto.Date); ok {
		return d.Time
	}
	return nil
}

func decimalRule(accept func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		switch v := fl.Field().Interface().(type) {
		case string:
			d, err := decimal.NewFromString(v)
			return err == nil && accept(d)
		case decimal.Decimal:
			return accept(v)
		}
		return false
	}
}
