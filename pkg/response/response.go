// Package response writes the short plain-text and JSON bodies the check-in page expects.
// Failures are numbered tags ("Invalid request #03") so no internal detail leaves the process.
package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Tag formats a numbered failure string, e.g. Tag("Invalid request", 3) = "Invalid request #03".
func Tag(prefix string, n int) string {
	return fmt.Sprintf("%s #%02d", prefix, n)
}

// Text sends a plain-text body with the given status.
func Text(c *gin.Context, status int, body string) {
	c.String(status, body)
}

// OK sends 200 "OK".
func OK(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// JSON sends a 200 JSON response.
func JSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// BadRequest sends 400 "Invalid request #NN".
func BadRequest(c *gin.Context, n int) {
	c.String(http.StatusBadRequest, Tag("Invalid request", n))
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context) {
	c.String(http.StatusUnauthorized, "Unauthorized")
}

// NotFound sends 404 with a short message.
func NotFound(c *gin.Context, msg string) {
	c.String(http.StatusNotFound, msg)
}

// Conflict sends 409 "Invalid request #NN".
func Conflict(c *gin.Context, n int) {
	c.String(http.StatusConflict, Tag("Invalid request", n))
}

// Internal sends 500 "Internal server error #NN". n <= 0 omits the number.
func Internal(c *gin.Context, n int) {
	if n <= 0 {
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.String(http.StatusInternalServerError, Tag("Internal server error", n))
}
