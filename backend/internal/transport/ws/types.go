package ws

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"

	"x-ocean/backend/internal/ocean"
)

// Константы для WebSocket сообщений
const (
	// Сообщения клиента
	MessageTypePing      = "ping"      // Пинг для измерения задержки
	MessageTypeConfigure = "configure" // Изменение настроек океана
	MessageTypeProbe     = "probe"     // Запрос смещения поверхности в точках

	// Сообщения сервера
	MessageTypePong        = "pong"          // Ответ на пинг
	MessageTypeConfigAck   = "configure_ack" // Принятые настройки
	MessageTypeProbeResult = "probe_result"  // Результат пробы
	MessageTypeState       = "state"         // Кадр состояния симуляции
	MessageTypeTiles       = "tiles"         // Снимок сетки тайлов
	MessageTypeInfo        = "info"          // Информационное сообщение
	MessageTypeError       = "error"         // Ошибка обработки сообщения
)

// Наибольшее число точек в одной пробе
const MaxProbePoints = 256

// PingMessage представляет пинг от клиента
type PingMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
}

// PongMessage представляет ответ на пинг от сервера
type PongMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
	ServerTime int64  `json:"server_time"`
}

// ConfigureMessage частичные настройки океана: применяются только указанные поля
type ConfigureMessage struct {
	Type       string          `json:"type"`
	Config     json.RawMessage `json:"config,omitempty"`
	Regenerate bool            `json:"regenerate,omitempty"`
}

// ConfigAckMessage итоговые настройки после применения
type ConfigAckMessage struct {
	Type       string       `json:"type"`
	Config     ocean.Config `json:"config"`
	ServerTime int64        `json:"server_time"`
}

// ProbeMessage запрос поверхности в мировых точках
type ProbeMessage struct {
	Type   string       `json:"type"`
	Points []mgl64.Vec3 `json:"points"`
}

// ProbeSample поверхность над одной точкой
type ProbeSample struct {
	Point        mgl64.Vec3      `json:"point"`
	Tile         ocean.TileIndex `json:"tile"`
	Displacement mgl64.Vec3      `json:"displacement"`
	Normal       mgl64.Vec3      `json:"normal"`
	SurfaceY     float64         `json:"surface_y"`
}

// ProbeResultMessage ответ на пробу
type ProbeResultMessage struct {
	Type     string        `json:"type"`
	WaveTime float64       `json:"wave_time"`
	Samples  []ProbeSample `json:"samples"`
}

// TilesMessage снимок всех тайлов сетки
type TilesMessage struct {
	Type       string               `json:"type"`
	OriginTile ocean.TileIndex      `json:"origin_tile"`
	Tiles      []ocean.TileSnapshot `json:"tiles"`
	ServerTime int64                `json:"server_time"`
}

// InfoMessage представляет информационное сообщение от сервера
type InfoMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorMessage сообщает клиенту об отклоненном сообщении
type ErrorMessage struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Error   string `json:"error"`
}
