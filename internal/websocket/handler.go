package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws
// identity 优先取 JWT middleware 注入的值；未开启鉴权时退回 ?identity=
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetString("identity")
		if identity == "" {
			identity = c.Query("identity")
		}
		if identity == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := &Client{
			Identity: identity,
			ConnID:   uuid.NewString(),
			Conn:     conn,
			Send:     make(chan OutgoingMessage, 32),
			Hub:      hub,
		}

		hub.Register(client)

		go client.writePump()
		go client.readPump()
	}
}
