package ws

import (
	"encoding/json"
	"fmt"

	"x-ocean/backend/internal/ocean"
)

// handlePing отвечает на пинг
func (s *WSServer) handlePing(conn *SafeWriter, message interface{}) error {
	ping, ok := message.(*PingMessage)
	if !ok {
		return ErrInvalidMessage
	}
	return conn.WriteJSON(NewPongMessage(ping.ClientTime))
}

// handleConfigure накладывает указанные поля на текущие настройки океана.
// Перестройка тайлов выполняется на следующем тике.
func (s *WSServer) handleConfigure(conn *SafeWriter, message interface{}) error {
	msg, ok := message.(*ConfigureMessage)
	if !ok {
		return ErrInvalidMessage
	}

	config, err := s.ocean.TryUpdate(func(c *ocean.Config) error {
		if len(msg.Config) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Config, c); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("reject config: %w", err)
		s.replyError(conn, MessageTypeConfigure, err)
		return err
	}

	if msg.Regenerate {
		s.ocean.RegenerateWaves()
	}

	s.logger.Printf("[WSServer] Применены настройки океана от %s (regenerate=%v)", conn.RemoteAddr(), msg.Regenerate)

	return conn.WriteJSON(&ConfigAckMessage{
		Type:       MessageTypeConfigAck,
		Config:     config,
		ServerTime: GetCurrentServerTime(),
	})
}

// handleProbe возвращает смещение и нормаль поверхности в запрошенных точках
func (s *WSServer) handleProbe(conn *SafeWriter, message interface{}) error {
	msg, ok := message.(*ProbeMessage)
	if !ok {
		return ErrInvalidMessage
	}

	level := s.ocean.SurfaceLevel()
	samples := make([]ProbeSample, 0, len(msg.Points))
	for _, point := range msg.Points {
		displacement := s.ocean.GetDisplacement(point)
		samples = append(samples, ProbeSample{
			Point:        point,
			Tile:         s.ocean.GetTileIndices(point),
			Displacement: displacement,
			Normal:       s.ocean.GetNormal(point),
			SurfaceY:     level + displacement.Y(),
		})
	}

	return conn.WriteJSON(&ProbeResultMessage{
		Type:     MessageTypeProbeResult,
		WaveTime: s.ocean.WaveTime(),
		Samples:  samples,
	})
}
