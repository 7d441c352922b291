package websocket

import "encoding/json"

// EventDisconnect 连接关闭时由 readPump 投递给上层
const EventDisconnect = "disconnect"

type OutgoingMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// IncomingMessage Data 原样保留，由上层按事件解析
type IncomingMessage struct {
	From   string          `json:"from"`
	ConnID string          `json:"-"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}
