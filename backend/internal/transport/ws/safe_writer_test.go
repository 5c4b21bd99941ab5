package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func TestSafeWriter_WriteJSON_Concurrency(t *testing.T) {
	received := make(chan []int64, 1)

	// Создаем тестовый сервер
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		// Каждое сообщение должно прийти целым JSON-объектом
		var times []int64
		for i := 0; i < 20; i++ {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("Error reading message: %v", err)
				break
			}
			var pong PongMessage
			if err := json.Unmarshal(data, &pong); err != nil {
				t.Errorf("Corrupted frame %q: %v", data, err)
				continue
			}
			times = append(times, pong.ClientTime)
		}
		received <- times
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	defer wsConn.Close()

	writer := NewSafeWriter(wsConn)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := writer.WriteJSON(NewPongMessage(id)); err != nil {
				t.Errorf("Error writing message: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	times := <-received
	unique := make(map[int64]struct{})
	for _, v := range times {
		unique[v] = struct{}{}
	}
	if len(unique) != 20 {
		t.Errorf("Expected 20 unique messages, got %d", len(unique))
	}
}

func TestSafeWriter_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		// Ожидаем ошибку, так как соединение будет закрыто
		conn.ReadMessage()
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}

	writer := NewSafeWriter(wsConn)
	if err := writer.Close(); err != nil {
		t.Errorf("Error closing connection: %v", err)
	}

	// Попытка записи в закрытое соединение должна вернуть ошибку
	if err := writer.WriteJSON(NewInfoMessage("test")); err == nil {
		t.Error("Expected error when writing to closed connection, got nil")
	}
}
