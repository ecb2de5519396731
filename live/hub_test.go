package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func startHub() *Hub {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	return hub
}

func register(t *testing.T, hub *Hub, room string, buffer int) *Client {
	t.Helper()
	client := &Client{Hub: hub, Send: make(chan []byte, buffer), Room: room}
	hub.Register <- client

	// Register обрабатывается горутиной Run; дожидаемся доставки
	// пробного сообщения как подтверждения регистрации.
	deadline := time.After(time.Second)
	registered := false
	for !registered {
		hub.BroadcastToRoom(room, Message{Type: "PING"})
		select {
		case <-client.Send:
			registered = true
		case <-deadline:
			t.Fatal("client was not registered in time")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Сливаем лишние пробные сообщения из буфера.
	for {
		select {
		case <-client.Send:
		default:
			return client
		}
	}
}

func TestBroadcastReachesOnlyItsRoom(t *testing.T) {
	hub := startHub()
	dashboard := register(t, hub, "dashboard", 8)
	event := register(t, hub, "event_ev1", 8)

	hub.BroadcastToRoom("dashboard", Message{Type: "CACHE_REFRESHED", RoomID: "dashboard"})

	select {
	case raw := <-dashboard.Send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type != "CACHE_REFRESHED" {
			t.Errorf("type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("dashboard client did not receive the broadcast")
	}

	select {
	case raw := <-event.Send:
		t.Errorf("event room received foreign message: %s", raw)
	default:
	}
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	hub := startHub()
	// Не должно паниковать и не должно блокировать.
	hub.BroadcastToRoom("nobody-here", Message{Type: "CACHE_REFRESHED"})
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := startHub()
	slow := register(t, hub, "dashboard", 1)

	// Забиваем буфер и шлём ещё: отправка не должна блокироваться.
	hub.BroadcastToRoom("dashboard", Message{Type: "ONE"})
	done := make(chan struct{})
	go func() {
		hub.BroadcastToRoom("dashboard", Message{Type: "TWO"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}

	// В буфере осталось ровно одно сообщение.
	<-slow.Send
	select {
	case raw := <-slow.Send:
		t.Errorf("dropped message was delivered: %s", raw)
	default:
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := startHub()
	client := register(t, hub, "dashboard", 8)

	hub.Unregister <- client

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-client.Send:
			if !ok {
				return // канал закрыт, клиент снят с учёта
			}
		case <-deadline:
			t.Fatal("send channel was not closed after unregister")
		}
	}
}
