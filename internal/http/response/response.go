// Package response содержит единый формат JSON-ответов обработчиков:
// {success, message} для ошибок и сообщений, сериализацию apperr и ошибок валидации.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/storefront/internal/lib/apperr"
	"github.com/magabrotheeeer/storefront/internal/lib/sl"
)

// Response ответ без данных.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Logged out successfully"`
}

// ErrorResponse ответ с ошибкой. Используется в аннотациях @Failure.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Invalid product ID"`
}

// Message возвращает успешный Response с сообщением.
func Message(msg string) Response {
	return Response{Success: true, Message: msg}
}

// Error возвращает ErrorResponse с сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Message: msg}
}

// ValidationError собирает нарушения валидации в одно сообщение через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		field := strings.ToLower(err.Field()[:1]) + err.Field()[1:]
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s is required", field))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be a valid email", field))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s can contain only numbers and letters", field))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be at least %s", field, err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be at most %s", field, err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be greater than %s", field, err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be one of: %s", field, err.Param()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s must be a valid URL", field))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("%s is not valid", field))
		}
	}
	return Error(strings.Join(errsMsgs, ", "))
}

// Invalid отвечает 400 на ошибку валидации или разбора тела запроса.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	render.Status(r, http.StatusBadRequest)
	if errors.As(err, &verrs) {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, Error("Invalid request body"))
}

// FromError отображает ошибку сервиса в HTTP-ответ. Причина внутренних ошибок
// пишется в лог и не попадает в ответ.
func FromError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal(err)
	}

	if appErr.Kind == apperr.KindInternal {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.String("kind", appErr.Kind.String()), slog.String("reason", appErr.Message))
	}

	render.Status(r, appErr.Kind.Status())
	render.JSON(w, r, Error(appErr.Message))
}
