package ws

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseMessageTypes(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"ping","client_time":42}`))
	if err != nil {
		t.Fatalf("Ошибка разбора ping: %v", err)
	}
	ping, ok := msg.(*PingMessage)
	if !ok || ping.ClientTime != 42 {
		t.Errorf("Ожидался PingMessage с client_time 42, получено %#v", msg)
	}

	msg, err = ParseMessage([]byte(`{"type":"configure","config":{"damping":0.5},"regenerate":true}`))
	if err != nil {
		t.Fatalf("Ошибка разбора configure: %v", err)
	}
	configure, ok := msg.(*ConfigureMessage)
	if !ok || !configure.Regenerate || !strings.Contains(string(configure.Config), "damping") {
		t.Errorf("Неожиданное configure сообщение: %#v", msg)
	}

	msg, err = ParseMessage([]byte(`{"type":"probe","points":[[1,0,2],[3,0,4]]}`))
	if err != nil {
		t.Fatalf("Ошибка разбора probe: %v", err)
	}
	probe, ok := msg.(*ProbeMessage)
	if !ok || len(probe.Points) != 2 || probe.Points[1][2] != 4 {
		t.Errorf("Неожиданное probe сообщение: %#v", msg)
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte(`{"client_time":1}`)); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Ожидалась ErrInvalidMessage для сообщения без типа, получено %v", err)
	}
	if _, err := ParseMessage([]byte(`{"type":"teleport"}`)); !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("Ожидалась ErrUnknownMessageType, получено %v", err)
	}
	if _, err := ParseMessage([]byte(`not json`)); err == nil {
		t.Error("Ожидалась ошибка для некорректного JSON")
	}

	points := make([]string, MaxProbePoints+1)
	for i := range points {
		points[i] = "[0,0,0]"
	}
	data := fmt.Sprintf(`{"type":"probe","points":[%s]}`, strings.Join(points, ","))
	if _, err := ParseMessage([]byte(data)); !errors.Is(err, ErrTooManyPoints) {
		t.Errorf("Ожидалась ErrTooManyPoints, получено %v", err)
	}
}
