package handler

import (
	"errors"
	"net/http"
	"reflect"

	"stockledger/internal/apierror"
	"stockledger/internal/middleware"
	"stockledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query-string parameters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid query: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// pathID parses the :name path parameter as a UUID.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeBadRequest, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// actor builds the caller identity from the JWT claims.
func actor(c *gin.Context) (service.Actor, bool) {
	tenantID, userID, err := middleware.Identity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "authentication required"))
		return service.Actor{}, false
	}
	return service.Actor{TenantID: tenantID, UserID: userID}, true
}

// errorStatus maps a service error to its HTTP status and envelope.
// Unknown errors are 500s whose detail is never exposed.
func errorStatus(err error) (int, *apierror.APIError) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, apierror.New(apierror.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, apierror.New(apierror.CodeInsufficientStock, err.Error())
	case errors.Is(err, service.ErrInvalidMovement):
		return http.StatusUnprocessableEntity, apierror.New(apierror.CodeInvalidMovement, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, apierror.New(apierror.CodeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrUnresolvedLine):
		return http.StatusUnprocessableEntity, apierror.New(apierror.CodeUnresolvedLine, err.Error())
	case errors.Is(err, service.ErrLineNotFound):
		return http.StatusUnprocessableEntity, apierror.New(apierror.CodeLineNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, apierror.NewRetryable(apierror.CodeConflict, "concurrent update, retry the request")
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, apierror.New(apierror.CodeAlreadyExists, err.Error())
	case errors.Is(err, service.ErrLocationNotEmpty):
		return http.StatusConflict, apierror.New(apierror.CodeLocationNotEmpty, err.Error())
	}
	return http.StatusInternalServerError, apierror.New(apierror.CodeInternal, "internal server error")
}

// respondError writes the mapped error. 500s are also attached to the
// context so that middleware.ErrorHandler logs them.
func respondError(c *gin.Context, err error) {
	status, body := errorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	} else if status == http.StatusConflict && body.Retryable {
		log.Warn().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("retryable conflict")
	}
	c.JSON(status, body)
}
