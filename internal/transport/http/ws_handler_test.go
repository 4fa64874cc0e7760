package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	service := newTestService()
	defer service.Close()
	server := httptest.NewServer(NewRouter(service, nil))
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()

	var session sessionPayload
	readNext(conn, t, "session", &session)
	if session.SessionID == "" {
		t.Fatalf("expected session id")
	}
	view := readView(conn, t)
	if view.Phase != domain.PhaseNotStarted || view.Total != 1 {
		t.Fatalf("expected welcome view, got %+v", view)
	}

	send(conn, t, map[string]any{"type": "start"})
	view = waitView(conn, t, func(v domain.View) bool { return v.Phase == domain.PhaseReady })
	if view.Question == nil || view.Question.Text != "What is 2 + 2?" {
		t.Fatalf("unexpected question %+v", view.Question)
	}

	send(conn, t, map[string]any{"type": "select", "payload": map[string]any{"answer": "4"}})
	view = waitView(conn, t, func(v domain.View) bool { return v.Question != nil && v.Question.Answer != nil })
	if view.Score != 1 || view.Question.NextLabel != domain.LabelFinish {
		t.Fatalf("expected scored answer, got score=%d label=%s", view.Score, view.Question.NextLabel)
	}

	send(conn, t, map[string]any{"type": "next"})
	view = waitView(conn, t, func(v domain.View) bool { return v.Phase == domain.PhaseResults })
	if view.Result == nil || view.Result.Score != 1 || view.Result.Total != 1 {
		t.Fatalf("expected 1/1 result, got %+v", view.Result)
	}
}

func TestWebSocketRejectsUnknownCommands(t *testing.T) {
	service := newTestService()
	defer service.Close()
	server := httptest.NewServer(NewRouter(service, nil))
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()
	readNext(conn, t, "session", nil)
	readView(conn, t)

	send(conn, t, map[string]any{"type": "cheat"})
	var errMsg errorPayload
	readNext(conn, t, "error", &errMsg)
	if errMsg.Message != "unsupported message type" {
		t.Fatalf("unexpected error %q", errMsg.Message)
	}
}

func TestWebSocketAttachesToExistingSession(t *testing.T) {
	service := newTestService()
	defer service.Close()
	server := httptest.NewServer(NewRouter(service, nil))
	defer server.Close()

	id := service.Create(context.Background()).SessionID
	conn := dial(t, server, id)

	var session sessionPayload
	readNext(conn, t, "session", &session)
	if session.SessionID != id {
		t.Fatalf("expected session %s, got %s", id, session.SessionID)
	}
	conn.Close()

	// Sessions created over REST survive the socket.
	time.Sleep(20 * time.Millisecond)
	if _, err := service.View(context.Background(), id); err != nil {
		t.Fatalf("expected session kept: %v", err)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	service := newTestService()
	defer service.Close()
	server := httptest.NewServer(NewRouter(service, nil))
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "missing"), nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, sessionID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func wsURL(server *httptest.Server, sessionID string) string {
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if sessionID != "" {
		u += "?sessionId=" + sessionID
	}
	return u
}

func send(conn *websocket.Conn, t *testing.T, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string, out any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	if out != nil {
		if err := json.Unmarshal(msg.Payload, out); err != nil {
			t.Fatalf("decode %s payload: %v", msg.Type, err)
		}
	}
}

func readView(conn *websocket.Conn, t *testing.T) domain.View {
	t.Helper()
	var view domain.View
	readNext(conn, t, "view", &view)
	return view
}

func waitView(conn *websocket.Conn, t *testing.T, match func(domain.View) bool) domain.View {
	t.Helper()
	for i := 0; i < 50; i++ {
		if view := readView(conn, t); match(view) {
			return view
		}
	}
	t.Fatalf("no matching view")
	return domain.View{}
}

func newTestService() *app.QuizService {
	store := memory.NewSessionStore()
	source := memory.NewQuestionPool(memory.NewStaticQuestionLoader([]domain.RawQuestion{
		{
			Category:         "Mathematics",
			Difficulty:       "easy",
			Question:         "What is 2 + 2?",
			CorrectAnswer:    "4",
			IncorrectAnswers: []string{"3", "5"},
		},
	}), time.Minute, nil)
	return app.NewQuizService(store, store, source, app.Settings{Amount: 1, QuestionSeconds: 30}, nil)
}
