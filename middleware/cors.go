package middleware

import (
	"strings"
	"time"

	"github.com/TreeBites/treebites-push/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows browser calls from the configured origins. An empty
// list or "*" allows every origin without credentials.
func CORSMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"X-Request-ID",
			"X-Service-Key",
		},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || containsOrigin(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
		return cors.New(corsConfig)
	}

	type wildcard struct{ scheme, suffix string }
	var exact []string
	var wildcards []wildcard
	for _, o := range cfg.AllowedOrigins {
		// "https://*.treebites.app" matches any subdomain over https.
		if scheme, suffix, ok := strings.Cut(o, "://*"); ok {
			wildcards = append(wildcards, wildcard{scheme: scheme + "://", suffix: suffix})
			continue
		}
		exact = append(exact, o)
	}

	corsConfig.AllowCredentials = true
	corsConfig.AllowOriginFunc = func(origin string) bool {
		if containsOrigin(exact, origin) {
			return true
		}
		for _, w := range wildcards {
			if strings.HasPrefix(origin, w.scheme) && strings.HasSuffix(origin, w.suffix) {
				return true
			}
		}
		return false
	}
	return cors.New(corsConfig)
}

func containsOrigin(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}
