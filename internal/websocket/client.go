package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	Identity string
	ConnID   string // 每条连接唯一，用来区分同一 identity 的新旧连接
	Conn     *websocket.Conn
	Send     chan OutgoingMessage
	Hub      *Hub
}

const (
	writeWait      = 10 * time.Second    // 单次写超时
	pongWait       = 60 * time.Second    // 读超时
	pingPeriod     = (pongWait * 9) / 10 // 心跳发送周期
	maxMessageSize = 1024 * 4            // 最大4KB
)

// 写协程
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod) // 心跳
	defer func() {
		ticker.Stop()
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	for {
		select {

		// 有消息待发
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭Send，通知前端
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}

		// 定时发送 ping 维持连接健康
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// 读协程：解析失败的帧回一个 error 事件，不断开连接
func (c *Client) readPump() {
	defer func() {
		// 连接结束：通知上层移出匹配队列
		c.Hub.push(IncomingMessage{From: c.Identity, ConnID: c.ConnID, Event: EventDisconnect})
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
			c.Hub.SendToPlayer(c.Identity, OutgoingMessage{
				Event: "error",
				Data:  map[string]string{"message": "malformed message"},
			})
			continue
		}

		// From 以连接身份为准，不信任客户端
		c.Hub.push(IncomingMessage{
			From:   c.Identity,
			ConnID: c.ConnID,
			Event:  msg.Event,
			Data:   msg.Data,
		})
	}
}
