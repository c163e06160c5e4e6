package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	errRequired       = errors.New("is required")
	errMustBePositive = errors.New("must not be negative")
	errInvalidKind    = errors.New("must be one of: food, exercise")
	errTooLong        = errors.New("is too long")
)

var tagErrors = map[string]error{
	"required": errRequired,
	"gte":      errMustBePositive,
	"oneof":    errInvalidKind,
	"max":      errTooLong,
}

// FromValidation 将validator的错误转换为 InvalidArgument，
// 每个出错字段对应一条 {字段名: 原因}。
func FromValidation(err error, op string) *Error {
	e := &Error{Kind: InvalidArgument, Op: op, Msg: "参数校验失败", Err: err}

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return e
	}
	for _, fe := range validationErr {
		msg := fmt.Sprintf("%s is invalid", fe.Field())
		if v, ok := tagErrors[fe.Tag()]; ok {
			msg = v.Error()
		}
		e.Details = append(e.Details, map[string]string{fe.Field(): msg})
	}
	return e
}
