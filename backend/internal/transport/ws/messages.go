package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrTooManyPoints      = errors.New("too many probe points")
)

// ParseMessage разбирает входящее сообщение в соответствующий тип
func ParseMessage(data []byte) (interface{}, error) {
	messageType, err := GetMessageType(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	switch messageType {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeConfigure:
		var msg ConfigureMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing configure message: %w", err)
		}
		return &msg, nil

	case MessageTypeProbe:
		var msg ProbeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing probe message: %w", err)
		}
		if len(msg.Points) > MaxProbePoints {
			return nil, fmt.Errorf("probe with %d points: %w", len(msg.Points), ErrTooManyPoints)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType)
	}
}

// GetMessageType возвращает тип сообщения на основе входных данных
func GetMessageType(data []byte) (string, error) {
	var baseMessage struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &baseMessage); err != nil {
		return "", err
	}
	if baseMessage.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}

	return baseMessage.Type, nil
}

// GetCurrentServerTime текущее время сервера в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewPongMessage создает ответ на пинг
func NewPongMessage(clientTime int64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(message string) *InfoMessage {
	return &InfoMessage{
		Type:    MessageTypeInfo,
		Message: message,
	}
}

// NewErrorMessage создает сообщение об ошибке обработки
func NewErrorMessage(request string, err error) *ErrorMessage {
	return &ErrorMessage{
		Type:    MessageTypeError,
		Request: request,
		Error:   err.Error(),
	}
}
