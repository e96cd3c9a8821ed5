package middlewarectx

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecurityHeaders выставляет стандартные заголовки безопасности (аналог helmet).
// В окружении local HSTS не отправляется.
func SecurityHeaders(env string) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		STSSeconds:            15552000,
		STSIncludeSubdomains:  true,
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'",
		IsDevelopment:         env == "local",
	})
	return s.Handler
}
