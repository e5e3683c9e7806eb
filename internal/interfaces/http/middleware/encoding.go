package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/response"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// BodyTooLarge 请求体超限提示
const BodyTooLarge = "Request body too large"

// NormalizeBody 限制请求体大小，文本正文不是合法 UTF-8 时按 GBK 转码
// maxBytes <= 0 表示不限制；转码失败保留原始数据
func NormalizeBody(maxBytes int64) gin.HandlerFunc {
	logger := log.NewModuleLogger("http", "body")
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		if maxBytes > 0 && c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, BodyTooLarge)
			return
		}

		var reader io.Reader = c.Request.Body
		if maxBytes > 0 {
			reader = io.LimitReader(c.Request.Body, maxBytes+1)
		}
		body, err := io.ReadAll(reader)
		_ = c.Request.Body.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Failed to read request body")
			return
		}
		// 分块传输没有 Content-Length，读完再判断
		if maxBytes > 0 && int64(len(body)) > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, BodyTooLarge)
			return
		}

		if isTextBody(c.ContentType()) && !utf8.Valid(body) {
			if decoded, err := decodeGBK(body); err == nil && utf8.Valid(decoded) {
				log.FromContext(c.Request.Context(), logger).Debug("Transcoded GBK request body",
					"path", c.Request.URL.Path,
					"bytes", len(body),
				)
				body = decoded
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Next()
	}
}

// isTextBody 只转码 JSON 与纯文本，未声明类型按文本处理
func isTextBody(contentType string) bool {
	return contentType == "" || contentType == "application/json" || strings.HasPrefix(contentType, "text/")
}

func decodeGBK(b []byte) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(b), simplifiedchinese.GBK.NewDecoder()))
}
