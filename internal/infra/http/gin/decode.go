package ginserver

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	gin "github.com/gin-gonic/gin"

	"carshare/internal/domain/shared/money"
)

const maxJSONBody = 1 << 20

// decodeStrict reads exactly one JSON object and rejects unknown fields.
func decodeStrict(c *gin.Context, out any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errors.Mark(errors.Wrap(err, "decode body"), ErrMalformedRequest)
	}
	if dec.More() {
		return errors.Wrap(ErrMalformedRequest, "trailing data after JSON object")
	}
	return nil
}

// decodeOptional accepts an empty body.
func decodeOptional(c *gin.Context, out any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return decodeStrict(c, out)
}

// decimal accepts 49.99 as well as "49.99".
type decimal string

func (d *decimal) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*d = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimal(strings.TrimSpace(s))
	default:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return errors.Wrapf(ErrMalformedRequest, "decimal %s", raw)
		}
		*d = decimal(raw)
	}
	return nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Wrapf(ErrMalformedRequest, "%s must be a non-negative integer", name)
	}
	return v, nil
}

// queryCents reads a decimal price parameter into minor units.
func queryCents(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := money.ParseCents(raw)
	if err != nil || v < 0 {
		return 0, errors.Wrapf(ErrMalformedRequest, "%s must be a non-negative amount", name)
	}
	return v, nil
}
