package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	"github.com/at-ishikawa/lectio/internal/apperr"
	"github.com/at-ishikawa/lectio/internal/video"
)

const errorDomain = "lectio"

// requestValidator checks request messages and reports violations by JSON field name.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register default translations: %w", err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate, translator: trans}, nil
}

func (v *requestValidator) check(msg any) *connect.Error {
	err := v.validate.Struct(msg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	fieldViolations := make([]*errdetails.BadRequest_FieldViolation, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		message := fe.Translate(v.translator)
		messages = append(messages, message)
		fieldViolations = append(fieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       fieldPath(fe.Namespace()),
			Description: message,
		})
	}

	connectErr := connect.NewError(connect.CodeInvalidArgument, errors.New(strings.Join(messages, ", ")))
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: fieldViolations,
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// toConnectError maps a service error to a connect code and attaches its
// reason code. Internal errors are logged and replaced with a generic message.
func toConnectError(err error, logger *zap.Logger) *connect.Error {
	kind := apperr.KindOf(err)
	var code connect.Code
	switch kind {
	case apperr.KindValidation:
		code = connect.CodeInvalidArgument
		if errors.Is(err, video.ErrDuplicateSource) {
			code = connect.CodeAlreadyExists
		}
	case apperr.KindNotFound:
		code = connect.CodeNotFound
	case apperr.KindInvalidState:
		code = connect.CodeFailedPrecondition
	case apperr.KindAcquisition, apperr.KindAnalysis:
		code = connect.CodeUnavailable
	case apperr.KindInternal:
		logger.Error("internal error", zap.Error(err))
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	default:
		code = connect.CodeUnknown
	}

	connectErr := connect.NewError(code, err)
	if reason := apperr.CodeOf(err); reason != "" {
		if detail, detailErr := connect.NewErrorDetail(&errdetails.ErrorInfo{
			Reason:   reason,
			Domain:   errorDomain,
			Metadata: map[string]string{"kind": kind.String()},
		}); detailErr == nil {
			connectErr.AddDetail(detail)
		}
	}
	return connectErr
}
