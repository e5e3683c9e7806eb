package interfaces

import (
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http"
)

// HTTPServer HTTP 服务器类型别名
type HTTPServer = http.HTTPServer
