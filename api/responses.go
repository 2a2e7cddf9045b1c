package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/auth"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/gin-gonic/gin"
)

// errorBody is the envelope every failed request carries. Kind mirrors the
// service-level classification so clients can branch without string matching.
type errorBody struct {
	Error     string           `json:"error"`
	Kind      orders.ErrorKind `json:"kind"`
	Retryable bool             `json:"retryable"`
}

func kindStatus(kind orders.ErrorKind) int {
	switch kind {
	case orders.KindValidation:
		return http.StatusBadRequest
	case orders.KindNotFound:
		return http.StatusNotFound
	case orders.KindPermissionDenied:
		return http.StatusForbidden
	case orders.KindConflict:
		return http.StatusConflict
	case orders.KindParse:
		return http.StatusBadGateway
	case orders.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func retryable(kind orders.ErrorKind) bool {
	return kind == orders.KindNetwork
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, errorBody{
			Error: err.Error(),
			Kind:  orders.KindPermissionDenied,
		})
		return
	}
	kind := orders.KindOf(err)
	c.JSON(kindStatus(kind), errorBody{
		Error:     err.Error(),
		Kind:      kind,
		Retryable: retryable(kind),
	})
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Error: "invalid request body: " + err.Error(),
			Kind:  orders.KindParse,
		})
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func queryBool(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
