// Package handlers contains the gin request handlers for the HTTP API.
// Every AR endpoint is stateless over the posted dataset: the caller
// ships the book (customers, invoices, payments) in the request body and
// receives the computed result, so the server holds no AR state beyond
// the action audit log.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CashFlow-Sentinel/internal/domain/invoice"
	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// DatasetRequest is the common request body: a full AR snapshot plus the
// evaluation date. as_of accepts YYYY-MM-DD or RFC 3339; empty means
// today (UTC).
type DatasetRequest struct {
	AsOf      string             `json:"as_of"`
	Customers []invoice.Customer `json:"customers"`
	Invoices  []invoice.Invoice  `json:"invoices"`
	Payments  []invoice.Payment  `json:"payments"`
}

// Dataset assembles the domain dataset from the request.
func (r *DatasetRequest) Dataset() *invoice.Dataset {
	return &invoice.Dataset{
		Customers: r.Customers,
		Invoices:  r.Invoices,
		Payments:  r.Payments,
	}
}

// AsOfTime parses the as_of field.
func (r *DatasetRequest) AsOfTime() (time.Time, error) {
	if r.AsOf == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse("2006-01-02", r.AsOf); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, r.AsOf); err == nil {
		return t, nil
	}
	return time.Time{}, errors.InvalidParam("as_of must be YYYY-MM-DD or RFC 3339").WithDetail("as_of=" + r.AsOf)
}

// bindDataset binds and validates the request body. On failure it writes
// the error response and returns false.
func bindDataset(c *gin.Context, req *DatasetRequest) (*invoice.Dataset, time.Time, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return nil, time.Time{}, false
	}
	asOf, err := req.AsOfTime()
	if err != nil {
		writeError(c, err)
		return nil, time.Time{}, false
	}

	ds := req.Dataset()
	if res := invoice.ValidateDataset(ds); !res.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":     string(errors.ErrCodeRecordInvalid),
			"message":  "dataset failed validation",
			"errors":   res.Errors,
			"warnings": res.Warnings,
		})
		return nil, time.Time{}, false
	}
	return ds, asOf, true
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps application errors onto HTTP status codes. Internal
// failures are masked.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, ErrorResponse{
		Code:    string(errors.GetCode(err)),
		Message: msg,
	})
}

func statusFor(err error) int {
	switch {
	case errors.IsValidation(err), errors.IsCode(err, errors.ErrCodeBadRequest):
		return http.StatusBadRequest
	case errors.IsNotFound(err), errors.IsCode(err, errors.ErrCodeAttemptNotFound):
		return http.StatusNotFound
	case errors.IsCode(err, errors.ErrCodeConflict),
		errors.IsCode(err, errors.ErrCodeAttemptInvalidState),
		errors.IsModelNotTrained(err):
		return http.StatusConflict
	case errors.IsInsufficientData(err),
		errors.IsContractMismatch(err),
		errors.IsCode(err, errors.ErrCodeModelKindUnknown):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
