package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	applog "granabox/internal/log"
)

// Handler upgrades requests and runs them as hub clients. originPatterns
// lists extra hosts allowed to connect; same-origin requests always are.
func Handler(hub *Hub, originPatterns ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentWebsocket).
				WarnContext(r.Context(), "Websocket accept failed", applog.FieldError, err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn).Run(r.Context())
	}
}
