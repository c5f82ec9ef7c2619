package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newGatewayFixture(t *testing.T) (*app.TriviaService, *httptest.Server) {
	t.Helper()
	gateway := NewGateway()
	service := app.NewTriviaService(
		app.NewSessionRegistry(),
		app.NewQuestionSetCache(memory.NewStaticQuestionProvider(gatewayBank())),
		app.NewLeaderboard(),
		memory.NewTenantStore(),
		gateway,
		memory.NewStore(),
	)
	gateway.Attach(service)
	if _, err := service.SetSchedule("tenant-1", "chan-1", 9, 0, "Europe/Paris"); err != nil {
		t.Fatalf("set schedule: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return service, server
}

func gatewayBank() map[domain.Tier][]domain.GradedQuestion {
	return map[domain.Tier][]domain.GradedQuestion{
		domain.TierEasy: {{
			ID: "easy-1", Prompt: "Capital of France?", Answer: "Paris",
			Decoys: []string{"Lyon", "Marseille", "Nice"},
		}},
		domain.TierMedium: {{
			ID: "medium-1", Prompt: "Most moons?", Answer: "Saturn",
			Decoys: []string{"Jupiter", "Neptune", "Uranus"},
		}},
		domain.TierHard: {{
			ID: "hard-1", Prompt: "Treaty of Westphalia?", Answer: "1648",
			Decoys: []string{"1618", "1659", "1701"},
		}},
	}
}

// readUntil drains messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("never received a %s message", want)
	return nil
}

func TestWebSocketAttemptFlow(t *testing.T) {
	service, server := newGatewayFixture(t)

	u := "ws" + server.URL[len("http"):] + "/ws?tenant=tenant-1&user=alice&channel=chan-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server side a moment to register the subscription before
	// the announcement is broadcast.
	time.Sleep(100 * time.Millisecond)

	if err := service.RunDailyCycle(context.Background(), "tenant-1", false); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	announcement := readUntil(t, conn, "announcement")
	day, _ := announcement["day"].(string)
	if day == "" {
		t.Fatalf("expected a day in the announcement, got %+v", announcement)
	}
	readUntil(t, conn, "threadOpened")

	attempt := map[string]any{
		"type":    "attempt",
		"payload": map[string]any{"day": day, "tier": "easy"},
	}
	if err := conn.WriteJSON(attempt); err != nil {
		t.Fatalf("write attempt: %v", err)
	}

	prompt := readUntil(t, conn, "prompt")
	promptID, _ := prompt["promptId"].(string)
	if promptID == "" {
		t.Fatalf("expected a prompt id, got %+v", prompt)
	}
	options, _ := prompt["options"].([]any)
	if len(options) != 4 {
		t.Fatalf("expected 4 shuffled options, got %+v", options)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"promptId": promptID, "answer": "Paris"},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	result := readUntil(t, conn, "attemptResult")
	if outcome, _ := result["outcome"].(string); outcome != "correct" {
		t.Fatalf("expected a correct outcome, got %+v", result)
	}
	if points, _ := result["points"].(float64); points <= 0 {
		t.Fatalf("expected points for a correct answer, got %+v", result)
	}

	// A second attempt at the same tier is rejected.
	if err := conn.WriteJSON(attempt); err != nil {
		t.Fatalf("write second attempt: %v", err)
	}
	errMsg := readUntil(t, conn, "error")
	if message, _ := errMsg["message"].(string); message == "" {
		t.Fatalf("expected a rejection message, got %+v", errMsg)
	}
}

func TestWebSocketPromptRoutedByTenant(t *testing.T) {
	service, server := newGatewayFixture(t)
	if _, err := service.SetSchedule("tenant-2", "chan-2", 9, 0, "Europe/Paris"); err != nil {
		t.Fatalf("set schedule: %v", err)
	}

	// The same user connected under two tenants. The second connection must
	// not steal prompts addressed to the first.
	base := "ws" + server.URL[len("http"):] + "/ws"
	conn1, _, err := websocket.DefaultDialer.Dial(base+"?tenant=tenant-1&user=alice&channel=chan-1", nil)
	if err != nil {
		t.Fatalf("dial tenant-1: %v", err)
	}
	defer conn1.Close()
	conn2, _, err := websocket.DefaultDialer.Dial(base+"?tenant=tenant-2&user=alice&channel=chan-2", nil)
	if err != nil {
		t.Fatalf("dial tenant-2: %v", err)
	}
	defer conn2.Close()

	// Give the server side a moment to register both connections.
	time.Sleep(100 * time.Millisecond)

	if err := service.RunDailyCycle(context.Background(), "tenant-1", false); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	announcement := readUntil(t, conn1, "announcement")
	day, _ := announcement["day"].(string)

	attempt := map[string]any{
		"type":    "attempt",
		"payload": map[string]any{"day": day, "tier": "easy"},
	}
	if err := conn1.WriteJSON(attempt); err != nil {
		t.Fatalf("write attempt: %v", err)
	}

	prompt := readUntil(t, conn1, "prompt")
	promptID, _ := prompt["promptId"].(string)
	if promptID == "" {
		t.Fatalf("expected the prompt on the tenant-1 connection, got %+v", prompt)
	}

	// The tenant-2 connection stays silent.
	_ = conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray map[string]any
	if err := conn2.ReadJSON(&stray); err == nil {
		t.Fatalf("tenant-2 connection received %+v, expected nothing", stray)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"promptId": promptID, "answer": "Paris"},
	}
	if err := conn1.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	result := readUntil(t, conn1, "attemptResult")
	if outcome, _ := result["outcome"].(string); outcome != "correct" {
		t.Fatalf("expected a correct outcome, got %+v", result)
	}
}

func TestWebSocketRejectsMissingIdentity(t *testing.T) {
	_, server := newGatewayFixture(t)

	resp, err := http.Get(server.URL + "/ws?user=alice")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing tenant, got %d", resp.StatusCode)
	}
}
