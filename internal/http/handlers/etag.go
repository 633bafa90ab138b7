package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes v as JSON with a strong ETag derived from
// the encoded body, answering 304 when the client already holds it.
func RespondJSONWithETag(ctx *gin.Context, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		RespondInternal(ctx, "Failed to encode response")
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	if match := ctx.GetHeader("If-None-Match"); match != "" && match == etag {
		ctx.Header("ETag", etag)
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Header("ETag", etag)
	ctx.Data(status, "application/json; charset=utf-8", body)
}
