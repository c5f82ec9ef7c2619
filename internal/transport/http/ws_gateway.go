package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/scoring"
	"github.com/gorilla/websocket"
)

// Gateway is the chat-platform boundary over websockets. Connected clients
// watch a channel (announcements, thread posts) and receive interactive
// answer prompts addressed to their player id. It implements app.Poster.
type Gateway struct {
	upgrader websocket.Upgrader
	service  *app.TriviaService

	mu        sync.Mutex
	nextID    uint64
	rnd       *rand.Rand
	byChannel map[string]map[*client]struct{}
	// byPlayer is keyed by tenant|player: the same user id can be
	// connected under several tenants at once.
	byPlayer map[string]*client
	// announcements: message id -> channel; threads: thread id -> channel.
	announcements map[string]string
	threads       map[string]string
	// pending prompt responses keyed by prompt id.
	pending map[string]chan string
}

func NewGateway() *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
		byChannel:     make(map[string]map[*client]struct{}),
		byPlayer:      make(map[string]*client),
		announcements: make(map[string]string),
		threads:       make(map[string]string),
		pending:       make(map[string]chan string),
	}
}

// Attach wires the trivia service after construction; the gateway is both
// the service's Poster and the transport that feeds it player attempts.
func (g *Gateway) Attach(service *app.TriviaService) {
	g.service = service
}

type client struct {
	conn   *websocket.Conn
	send   chan outboundMessage
	player string
	tenant string
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type tierSummary struct {
	Tier       domain.Tier `json:"tier"`
	BasePoints int         `json:"basePoints"`
	Attempts   int         `json:"attempts"`
}

type announcementPayload struct {
	MessageID string        `json:"messageId"`
	ChannelID string        `json:"channelId"`
	Tenant    string        `json:"tenant"`
	Day       string        `json:"day"`
	Tiers     []tierSummary `json:"tiers"`
}

type promptPayload struct {
	PromptID       string   `json:"promptId"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

type attemptPayload struct {
	Day  string      `json:"day"`
	Tier domain.Tier `json:"tier"`
}

type answerPayload struct {
	PromptID string `json:"promptId"`
	Answer   string `json:"answer"`
}

// ServeWS upgrades the connection and wires it into the game. Query params:
// tenant (required), user (required), channel (optional watch subscription).
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	player := r.URL.Query().Get("user")
	channel := r.URL.Query().Get("channel")
	if tenant == "" || player == "" {
		http.Error(w, "missing tenant or user", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		conn:   conn,
		send:   make(chan outboundMessage, 16),
		player: player,
		tenant: tenant,
	}
	g.register(c, channel)
	defer g.unregister(c, channel)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error for %s: %v", player, err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "attempt":
			var payload attemptPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.trySend(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid attempt payload"}})
				continue
			}
			// Each attempt runs on its own goroutine: the read loop must
			// keep draining so the player's answer selection gets through.
			go g.runAttempt(r.Context(), c, payload)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.trySend(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			g.resolvePrompt(payload.PromptID, payload.Answer)
		default:
			c.trySend(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(c.send)
	<-writerDone
}

func (g *Gateway) runAttempt(ctx context.Context, c *client, payload attemptPayload) {
	if g.service == nil {
		c.trySend(outboundMessage{Type: "error", Payload: errorPayload{Message: "service unavailable"}})
		return
	}
	result, err := g.service.HandleAnswer(ctx, c.tenant, payload.Day, payload.Tier, c.player)
	if err != nil {
		message := "attempt failed"
		if errors.Is(err, domain.ErrAlreadyAnswered) {
			message = fmt.Sprintf("you already attempted the %s question today, come back tomorrow", payload.Tier)
		}
		log.Printf("attempt by %s on %s/%s rejected: %v", c.player, payload.Day, payload.Tier, err)
		c.trySend(outboundMessage{Type: "error", Payload: errorPayload{Message: message}})
		return
	}
	c.trySend(outboundMessage{Type: "attemptResult", Payload: result})
}

func (c *client) trySend(msg outboundMessage) {
	defer func() {
		// send may race with the read loop closing the channel; a dropped
		// message to a disconnecting client is fine.
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

func (g *Gateway) register(c *client, channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if channel != "" {
		subscribers, ok := g.byChannel[channel]
		if !ok {
			subscribers = make(map[*client]struct{})
			g.byChannel[channel] = subscribers
		}
		subscribers[c] = struct{}{}
	}
	g.byPlayer[playerKey(c.tenant, c.player)] = c
}

func playerKey(tenant, player string) string {
	return tenant + "|" + player
}

func (g *Gateway) unregister(c *client, channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if subscribers, ok := g.byChannel[channel]; ok {
		delete(subscribers, c)
		if len(subscribers) == 0 {
			delete(g.byChannel, channel)
		}
	}
	if key := playerKey(c.tenant, c.player); g.byPlayer[key] == c {
		delete(g.byPlayer, key)
	}
}

// PostAnnouncement broadcasts the day's summary to the channel's watchers
// and returns a synthetic message handle for later edits and deletion.
func (g *Gateway) PostAnnouncement(_ context.Context, channelID string, set *domain.QuestionSet, tenant string) (domain.MessageLocation, error) {
	g.mu.Lock()
	g.nextID++
	messageID := fmt.Sprintf("msg-%d", g.nextID)
	g.announcements[messageID] = channelID
	g.mu.Unlock()

	payload := g.announcement(messageID, channelID, set, tenant)
	g.broadcast(channelID, outboundMessage{Type: "announcement", Payload: payload})
	return domain.MessageLocation{ChannelID: channelID, MessageID: messageID}, nil
}

func (g *Gateway) OpenThread(_ context.Context, loc domain.MessageLocation, name string) (string, error) {
	g.mu.Lock()
	g.nextID++
	threadID := fmt.Sprintf("thread-%d", g.nextID)
	g.threads[threadID] = loc.ChannelID
	g.mu.Unlock()

	g.broadcast(loc.ChannelID, outboundMessage{Type: "threadOpened", Payload: map[string]string{
		"threadId":  threadID,
		"messageId": loc.MessageID,
		"name":      name,
	}})
	return threadID, nil
}

func (g *Gateway) EditAnnouncement(_ context.Context, loc domain.MessageLocation, set *domain.QuestionSet, tenant string) error {
	g.mu.Lock()
	_, known := g.announcements[loc.MessageID]
	g.mu.Unlock()
	if !known {
		return fmt.Errorf("unknown announcement %s", loc.MessageID)
	}
	payload := g.announcement(loc.MessageID, loc.ChannelID, set, tenant)
	g.broadcast(loc.ChannelID, outboundMessage{Type: "announcementUpdate", Payload: payload})
	return nil
}

func (g *Gateway) DeleteAnnouncement(_ context.Context, loc domain.MessageLocation) error {
	g.mu.Lock()
	delete(g.announcements, loc.MessageID)
	g.mu.Unlock()
	g.broadcast(loc.ChannelID, outboundMessage{Type: "announcementRemoved", Payload: map[string]string{
		"messageId": loc.MessageID,
	}})
	return nil
}

// PromptForAnswer delivers the question to the player's connection under the
// given tenant and waits up to timeout for their selection.
func (g *Gateway) PromptForAnswer(ctx context.Context, tenant, player string, question domain.GradedQuestion, timeout time.Duration) (string, bool, error) {
	g.mu.Lock()
	c, online := g.byPlayer[playerKey(tenant, player)]
	if !online {
		g.mu.Unlock()
		return "", false, fmt.Errorf("player %s is not connected", player)
	}
	g.nextID++
	promptID := fmt.Sprintf("prompt-%d", g.nextID)
	response := make(chan string, 1)
	g.pending[promptID] = response

	options := question.Options()
	shuffled := make([]string, len(options))
	copy(shuffled, options)
	g.rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, promptID)
		g.mu.Unlock()
	}()

	c.trySend(outboundMessage{Type: "prompt", Payload: promptPayload{
		PromptID:       promptID,
		Prompt:         question.Prompt,
		Options:        shuffled,
		TimeoutSeconds: int(timeout.Seconds()),
	}})

	select {
	case answer := <-response:
		return answer, true, nil
	case <-time.After(timeout):
		c.trySend(outboundMessage{Type: "promptExpired", Payload: map[string]string{"promptId": promptID}})
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (g *Gateway) PostToThread(_ context.Context, threadID, text string) error {
	g.mu.Lock()
	channelID, ok := g.threads[threadID]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown thread %s", threadID)
	}
	g.broadcast(channelID, outboundMessage{Type: "thread", Payload: map[string]string{
		"threadId": threadID,
		"text":     text,
	}})
	return nil
}

func (g *Gateway) resolvePrompt(promptID, answer string) {
	g.mu.Lock()
	response, ok := g.pending[promptID]
	if ok {
		delete(g.pending, promptID)
	}
	g.mu.Unlock()
	if ok {
		response <- answer
	}
}

func (g *Gateway) broadcast(channelID string, msg outboundMessage) {
	g.mu.Lock()
	subscribers := make([]*client, 0, len(g.byChannel[channelID]))
	for c := range g.byChannel[channelID] {
		subscribers = append(subscribers, c)
	}
	g.mu.Unlock()
	for _, c := range subscribers {
		c.trySend(msg)
	}
}

func (g *Gateway) announcement(messageID, channelID string, set *domain.QuestionSet, tenant string) announcementPayload {
	tiers := make([]tierSummary, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		tiers = append(tiers, tierSummary{
			Tier:       tier,
			BasePoints: scoring.BasePoints(tier),
			Attempts:   set.AttemptCount(tier, tenant),
		})
	}
	return announcementPayload{
		MessageID: messageID,
		ChannelID: channelID,
		Tenant:    tenant,
		Day:       set.Day,
		Tiers:     tiers,
	}
}
