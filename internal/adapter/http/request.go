package http

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"currency-converter/internal/domain/model"
	"currency-converter/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	defaultAmount = "1"
	defaultFrom   = "USD"
	defaultTo     = "EUR"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type conversionRequest struct {
	Amount decimal.Decimal `validate:"gte=0.01"`
	From   string          `validate:"required,currency"`
	To     string          `validate:"required,currency"`
}

type pairRequest struct {
	From string `validate:"required,currency"`
	To   string `validate:"required,currency"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyCode.MatchString(fl.Field().String())
	})
	return v
}

func parseConversionRequest(v *validator.Validate, query url.Values) (*conversionRequest, error) {
	amount, err := utils.ParseAmount(utils.QueryOrDefault(query, "amount", defaultAmount))
	if err != nil {
		return nil, err
	}

	req := &conversionRequest{
		Amount: amount,
		From:   utils.QueryOrDefault(query, "from", defaultFrom),
		To:     utils.QueryOrDefault(query, "to", defaultTo),
	}
	if err := v.Struct(req); err != nil {
		return nil, validationMessage(err)
	}
	return req, nil
}

func parsePairRequest(v *validator.Validate, query url.Values) (*pairRequest, error) {
	req := &pairRequest{
		From: query.Get("from"),
		To:   query.Get("to"),
	}
	if err := v.Struct(req); err != nil {
		return nil, validationMessage(err)
	}
	return req, nil
}

func (r *conversionRequest) pair() (model.Currency, model.Currency) {
	return model.Currency(r.From), model.Currency(r.To)
}

// validationMessage turns validator output into a caller-facing message.
func validationMessage(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "gte":
			msgs = append(msgs, "amount must be at least 0.01")
		case "currency":
			msgs = append(msgs, fmt.Sprintf("%s: currency code must be 3 uppercase letters", field))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
