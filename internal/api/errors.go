package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/protocol/lucid"
	"github.com/danmechanic/glucid/internal/transaction"
)

var errJournalDisabled = errors.New("exchange journal is not enabled")

// statusFor 设备错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, transaction.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, transaction.ErrNoResponse):
		return http.StatusGatewayTimeout
	case errors.Is(err, device.ErrOutOfRange),
		errors.Is(err, lucid.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, device.ErrNotQueryable),
		errors.Is(err, device.ErrTableNotLoaded):
		return http.StatusConflict
	case errors.Is(err, lucid.ErrFrameNotFound),
		errors.Is(err, lucid.ErrBadManufacturer),
		errors.Is(err, lucid.ErrBadModel),
		errors.Is(err, lucid.ErrNotAResponse),
		errors.Is(err, lucid.ErrAddressMismatch),
		errors.Is(err, device.ErrShortPayload):
		return http.StatusBadGateway
	case errors.Is(err, errJournalDisabled):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail 统一错误响应
func fail(c *gin.Context, err error) {
	code := statusFor(err)
	kind := transaction.Result(err)
	switch code {
	case http.StatusBadRequest:
		kind = "bad_request"
	case http.StatusConflict:
		kind = "conflict"
	case http.StatusNotFound:
		kind = "not_found"
	case http.StatusServiceUnavailable:
		kind = "not_connected"
	}
	c.AbortWithStatusJSON(code, gin.H{"error": kind, "message": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
}
