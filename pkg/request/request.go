// Package request reads the JSON bodies the check-in page posts.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

// maxBody caps request bodies; registrations are a few kilobytes.
const maxBody = 1 << 20

// ReadBody returns the request body, or false when it is missing or blank.
func ReadBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil {
		return nil, false
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	return raw, true
}

// DecodeObject decodes a JSON object, keeping numbers as json.Number so numeric ids are not rounded.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("body is not a JSON object")
	}
	return body, nil
}
