package util

import (
	"bytes"
	"io"

	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// MaxJSONBody caps request bodies decoded by BindStrictJSON.
const MaxJSONBody = 1 << 20

// BindStrictJSON decodes the request body into dst, rejecting unknown fields and
// trailing data, then runs struct validation. On failure it responds and returns false.
func BindStrictJSON(c *gin.Context, dst any) bool {
	if apiErr := DecodeStrictJSON(c.Request.Body, dst); apiErr != nil {
		RespondWithAPIError(c, apiErr)
		return false
	}
	if verr := validation.Struct(dst); verr != nil {
		RespondWithAPIError(c, verr.ToAPIError())
		return false
	}
	return true
}

// DecodeStrictJSON decodes one JSON document from r into dst with unknown fields
// rejected.
func DecodeStrictJSON(r io.Reader, dst any) *errors.APIError {
	if r == nil {
		return errors.BadRequest("request body is required")
	}
	body, err := io.ReadAll(io.LimitReader(r, MaxJSONBody+1))
	if err != nil {
		return errors.BadRequest("failed to read request body")
	}
	if len(body) > MaxJSONBody {
		return errors.PayloadTooLarge("1MB")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.BadRequest("request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.BadRequest("invalid JSON body").WithDetails(err.Error())
	}
	if dec.More() {
		return errors.BadRequest("invalid JSON body").WithDetails("unexpected data after object")
	}
	return nil
}
