package ws

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"x-ocean/backend/internal/game"
	"x-ocean/backend/internal/ocean"
)

// MessageHandler - тип функции обработчика сообщений
type MessageHandler func(conn *SafeWriter, message interface{}) error

// WSServer раздает клиентам состояние моря и принимает настройки и пробы
type WSServer struct {
	upgrader           websocket.Upgrader
	scene              *game.Scene
	ocean              *ocean.Ocean
	handlers           map[string]MessageHandler
	connectionHandlers []func(conn *SafeWriter)

	clients   map[*SafeWriter]struct{}
	clientsMu sync.RWMutex

	logger *log.Logger
}

// NewWSServer создает новый экземпляр WebSocket сервера
func NewWSServer(scene *game.Scene, logger *log.Logger) *WSServer {
	if logger == nil {
		logger = log.Default()
	}

	server := &WSServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		scene:              scene,
		ocean:              scene.Ocean(),
		handlers:           make(map[string]MessageHandler),
		connectionHandlers: []func(conn *SafeWriter){},
		clients:            make(map[*SafeWriter]struct{}),
		logger:             logger,
	}

	// Регистрируем стандартные обработчики
	server.RegisterHandler(MessageTypePing, server.handlePing)
	server.RegisterHandler(MessageTypeConfigure, server.handleConfigure)
	server.RegisterHandler(MessageTypeProbe, server.handleProbe)

	// После сдвига начала координат клиенты получают новые мировые позиции тайлов
	server.ocean.AddOriginListener(func(shift mgl64.Vec3, originTile ocean.TileIndex) {
		if err := server.BroadcastTiles(); err != nil {
			server.logger.Printf("[WSServer] Ошибка рассылки тайлов после сдвига на %s: %v", originTile.Name(), err)
		}
	})

	return server
}

// RegisterHandler регистрирует обработчик для конкретного типа сообщений
func (s *WSServer) RegisterHandler(messageType string, handler MessageHandler) {
	s.handlers[messageType] = handler
}

// OnConnection регистрирует функцию, которая будет вызвана при новом соединении
func (s *WSServer) OnConnection(handler func(conn *SafeWriter)) {
	s.connectionHandlers = append(s.connectionHandlers, handler)
}

// HandleWS обрабатывает входящие WebSocket соединения
func (s *WSServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[WSServer] Ошибка upgrade: %v", err)
		return
	}

	safeConn := NewSafeWriter(conn)
	defer func() {
		s.removeClient(safeConn)
		safeConn.Close()
	}()

	s.logger.Printf("[WSServer] Новое соединение от %s", safeConn.RemoteAddr())

	// Отправляем приветственное сообщение
	if err := safeConn.WriteJSON(NewInfoMessage("Connected to x-ocean server")); err != nil {
		s.logger.Printf("[WSServer] Ошибка отправки приветствия: %v", err)
		return
	}

	// Сетка тайлов до первого кадра состояния
	if err := safeConn.WriteJSON(s.tilesMessage()); err != nil {
		s.logger.Printf("[WSServer] Ошибка отправки тайлов: %v", err)
		return
	}

	s.addClient(safeConn)

	// Вызываем все обработчики новых соединений
	for _, handler := range s.connectionHandlers {
		handler(safeConn)
	}

	// Основной цикл обработки сообщений
	for {
		_, data, err := safeConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("[WSServer] Ошибка соединения: %v", err)
			}
			break
		}

		s.dispatch(safeConn, data)
	}

	s.logger.Printf("[WSServer] Соединение закрыто: %s", safeConn.RemoteAddr())
}

// dispatch разбирает сообщение и передает обработчику. Ошибки не разрывают соединение
func (s *WSServer) dispatch(conn *SafeWriter, data []byte) {
	messageType, _ := GetMessageType(data)

	message, err := ParseMessage(data)
	if err != nil {
		s.logger.Printf("[WSServer] Ошибка разбора сообщения: %v", err)
		s.replyError(conn, messageType, err)
		return
	}

	handler, ok := s.handlers[messageType]
	if !ok {
		s.logger.Printf("[WSServer] Нет обработчика для типа сообщения: %s", messageType)
		s.replyError(conn, messageType, fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType))
		return
	}

	if err := handler(conn, message); err != nil {
		s.logger.Printf("[WSServer] Ошибка обработки сообщения %s: %v", messageType, err)
	}
}

func (s *WSServer) replyError(conn *SafeWriter, request string, err error) {
	if writeErr := conn.WriteJSON(NewErrorMessage(request, err)); writeErr != nil {
		s.logger.Printf("[WSServer] Ошибка отправки сообщения об ошибке: %v", writeErr)
	}
}

func (s *WSServer) addClient(conn *SafeWriter) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[conn] = struct{}{}
}

func (s *WSServer) removeClient(conn *SafeWriter) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, conn)
}

// ClientCount количество подключенных клиентов
func (s *WSServer) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *WSServer) snapshotClients() []*SafeWriter {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	clients := make([]*SafeWriter, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	return clients
}

// broadcast отправляет сообщение всем клиентам; клиенты с ошибкой записи отключаются
func (s *WSServer) broadcast(message interface{}) error {
	var errs []error
	for _, client := range s.snapshotClients() {
		if err := client.WriteJSON(message); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", client.RemoteAddr(), err))
			s.removeClient(client)
			client.Close()
		}
	}
	return errors.Join(errs...)
}

// BroadcastState рассылает кадр состояния симуляции
func (s *WSServer) BroadcastState(frame game.StateFrame) error {
	return s.broadcast(frame)
}

// BroadcastTiles рассылает снимок сетки тайлов
func (s *WSServer) BroadcastTiles() error {
	return s.broadcast(s.tilesMessage())
}

func (s *WSServer) tilesMessage() *TilesMessage {
	return &TilesMessage{
		Type:       MessageTypeTiles,
		OriginTile: s.ocean.OriginTile(),
		Tiles:      s.ocean.Tiles(),
		ServerTime: GetCurrentServerTime(),
	}
}
