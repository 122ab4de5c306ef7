// internal/handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/i18n"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

// respondError maps a service error onto the HTTP surface. resource names the
// i18n prefix used for not-found messages.
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrValidation):
		if details := utils.GetValidationErrors(err); len(details) > 0 {
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource, err.Error())
	case errors.Is(err, services.ErrConcurrencyConflict):
		utils.ConflictResponse(c, utils.CodeConcurrencyConflict, i18n.T(lang, i18n.KeyConcurrencyConflict), err.Error())
	case errors.Is(err, services.ErrStateConflict):
		utils.ConflictResponse(c, utils.CodeStateConflict, i18n.T(lang, i18n.KeyStateConflict), err.Error())
	case errors.Is(err, services.ErrWorkflowSuspended):
		utils.LockedResponse(c, i18n.T(lang, i18n.KeyDistributionSuspended))
	case errors.Is(err, services.ErrDownstream):
		utils.BadGatewayResponse(c, i18n.T(lang, i18n.KeyDownstreamFailure))
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// requireActor returns the caller's actor id or writes a 401.
func requireActor(c *gin.Context) (string, bool) {
	actorID, ok := utils.GetActorIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return actorID, ok
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, param), nil)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// versionBody carries the optional optimistic-concurrency stamp of
// body-less transitions.
type versionBody struct {
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func bindOptionalVersion(c *gin.Context) (*int64, bool) {
	var body versionBody
	if c.Request.ContentLength == 0 {
		return nil, true
	}
	if !bindJSON(c, &body) {
		return nil, false
	}
	return body.ExpectedVersion, true
}
