package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"civreg/pkg/requestcontext"
)

// Device resolves a readable device name from the User-Agent header so audit
// entries can record which kind of client performed an action.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := deviceName(r.UserAgent())
		ctx := requestcontext.WithDeviceName(r.Context(), name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceName(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()

	var parts []string
	if browser != "" {
		parts = append(parts, browser)
	}
	if osInfo := ua.OSInfo().Name; osInfo != "" {
		parts = append(parts, "on "+osInfo)
	}
	if ua.Mobile() {
		parts = append(parts, "(mobile)")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " ")
}
