// common.go
//
// Document and event content service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of eventsdb.
// eventsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// eventsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with eventsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/types"
	"github.com/localnerve/eventsdb/internal/utils"
	"github.com/sirupsen/logrus"
)

// handleError writes the response for an error returned by a service.
// Unknown errors are logged and answered with a generic 500 naming op.
func handleError(c *fiber.Ctx, err error, op string) error {
	var ve *forms.ValidationError
	switch {
	case errors.As(err, &ve):
		return utils.ValidationErrorResponse(c, ve)
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrCategoryProtected):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, types.ErrorTypeConflict)
	case errors.Is(err, services.ErrPageTypeNotAllowed),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNotAnEvent),
		errors.Is(err, services.ErrRootPage):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, types.ErrorTypeValidation)
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"op":   op,
		"path": c.Path(),
	}).Error("request failed")
	return utils.ErrorResponse(c, "Internal server error ("+op+")", fiber.StatusInternalServerError, types.ErrorTypeServer)
}

// badRequest answers a body that could not be parsed
func badRequest(c *fiber.Ctx, err error) error {
	return utils.ErrorResponse(c, "Invalid request body: "+err.Error(), fiber.StatusBadRequest, types.ErrorTypeValidation)
}

// paramID reads a positive integer route parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 0)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, "Invalid "+name)
	}
	return uint(id), nil
}

// queryID reads an optional positive integer query parameter. Empty and
// invalid values are ignored.
func queryID(c *fiber.Ctx, name string) *uint {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

func parseUint(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	return uint(id), err
}

// ErrorHandler is the application error handler. It answers with the JSON
// error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	errorType := types.ErrorTypeServer

	var fe *fiber.Error
	var ce *types.CustomError
	switch {
	case errors.As(err, &ce):
		code = ce.Code
		message = ce.Message
		errorType = ce.Type
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
		if code == fiber.StatusNotFound {
			errorType = types.ErrorTypeNotFound
		}
	default:
		logrus.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}

	return utils.ErrorResponse(c, message, code, errorType)
}
