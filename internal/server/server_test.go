package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fanconnect/server/internal/database"
	"github.com/fanconnect/server/internal/handlers/dto"
	"github.com/fanconnect/server/internal/models"
	"github.com/fanconnect/server/internal/server"
	ws "github.com/fanconnect/server/internal/websocket"
	"github.com/fanconnect/server/pkg/auth"
)

type testEnv struct {
	ts       *httptest.Server
	db       *database.Database
	jwt      *auth.JWTManager
	registry *ws.Registry
	userSeq  int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection, or every pooled connection gets its own :memory: db.
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db := database.NewDatabase(gdb)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)

	srv := server.New(db, rdb, jwtMgr)
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, jwt: jwtMgr, registry: srv.Registry}
}

func (e *testEnv) createUser(t *testing.T, role models.Role, gems int) (*models.User, string) {
	t.Helper()

	e.userSeq++
	user := &models.User{
		Username:     fmt.Sprintf("%s%d", role, e.userSeq),
		Email:        fmt.Sprintf("%s%d@example.com", role, e.userSeq),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		Gems:         gems,
		CreatedAt:    time.Now(),
	}
	if err := e.db.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}

	token, err := e.jwt.Generate(user.ID.String(), string(role))
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return user, token
}

func (e *testEnv) dial(t *testing.T, token string) *gorillaws.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws?token=" + token
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitOnline blocks until the registry has an entry for every given user, so
// a test cannot outrun the server's post-handshake registration.
func (e *testEnv) waitOnline(t *testing.T, userIDs ...uuid.UUID) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		online := 0
		for _, id := range userIDs {
			if _, ok := e.registry.Lookup(id); ok {
				online++
			}
		}
		if online == len(userIDs) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d users registered in time", online, len(userIDs))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type wsEnvelope struct {
	Type    string              `json:"type"`
	Message dto.MessageResponse `json:"message"`
	Error   string              `json:"error"`
}

func readEnvelope(t *testing.T, conn *gorillaws.Conn) wsEnvelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return env
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestLiveChatFanToModelFansOutToWorkers(t *testing.T) {
	e := newTestEnv(t)

	fan, fanToken := e.createUser(t, models.RoleFan, 5)
	model, modelToken := e.createUser(t, models.RoleModel, 0)
	worker1, worker1Token := e.createUser(t, models.RoleWorker, 0)
	worker2, _ := e.createUser(t, models.RoleWorker, 0) // stays offline

	for _, w := range []uuid.UUID{worker1.ID, worker2.ID} {
		if _, err := e.db.AssignWorker(w, model.ID); err != nil {
			t.Fatalf("assign worker: %v", err)
		}
	}

	modelConn := e.dial(t, modelToken)
	worker1Conn := e.dial(t, worker1Token)
	fanConn := e.dial(t, fanToken)
	e.waitOnline(t, fan.ID, model.ID, worker1.ID)

	err := fanConn.WriteJSON(map[string]string{
		"type":       "chat_message",
		"receiverId": model.ID.String(),
		"content":    "hi",
	})
	if err != nil {
		t.Fatalf("write frame: %v", err)
	}

	// The model and the assigned online worker both get new_message.
	for name, conn := range map[string]*gorillaws.Conn{"model": modelConn, "worker1": worker1Conn} {
		env := readEnvelope(t, conn)
		if env.Type != "new_message" {
			t.Fatalf("%s: expected new_message, got %q", name, env.Type)
		}
		if env.Message.Content != "hi" || env.Message.SenderID != fan.ID || env.Message.ReceiverID != model.ID {
			t.Fatalf("%s: wrong message payload %+v", name, env.Message)
		}
	}

	// The sender gets exactly the acknowledgment.
	ack := readEnvelope(t, fanConn)
	if ack.Type != "message_sent" {
		t.Fatalf("expected message_sent ack, got %q", ack.Type)
	}
	if ack.Message.ID == uuid.Nil || ack.Message.Content != "hi" {
		t.Fatalf("ack does not reference the persisted message: %+v", ack.Message)
	}

	// Durable effects: one persisted message, one gem debited.
	conversation, err := e.db.GetConversation(fan.ID, model.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if len(conversation) != 1 || conversation[0].GemCost != 1 {
		t.Fatalf("expected one persisted message with gemCost 1, got %+v", conversation)
	}
	balance, _ := e.db.GetBalance(fan.ID)
	if balance != 4 {
		t.Fatalf("expected fan balance 4 after send, got %d", balance)
	}
}

func TestLiveChatInsufficientGems(t *testing.T) {
	e := newTestEnv(t)

	fan, fanToken := e.createUser(t, models.RoleFan, 0)
	model, _ := e.createUser(t, models.RoleModel, 0)

	fanConn := e.dial(t, fanToken)
	e.waitOnline(t, fan.ID)

	err := fanConn.WriteJSON(map[string]string{
		"type":       "chat_message",
		"receiverId": model.ID.String(),
		"content":    "hi",
	})
	if err != nil {
		t.Fatalf("write frame: %v", err)
	}

	env := readEnvelope(t, fanConn)
	if env.Type != "error" || env.Error == "" {
		t.Fatalf("expected error frame, got %+v", env)
	}

	conversation, _ := e.db.GetConversation(fan.ID, model.ID)
	if len(conversation) != 0 {
		t.Fatal("a rejected send must not be persisted")
	}
}

func TestLiveChatToOfflineReceiverStillAcknowledges(t *testing.T) {
	e := newTestEnv(t)

	fan, fanToken := e.createUser(t, models.RoleFan, 5)
	model, _ := e.createUser(t, models.RoleModel, 0) // never connects

	fanConn := e.dial(t, fanToken)
	e.waitOnline(t, fan.ID)

	err := fanConn.WriteJSON(map[string]string{
		"type":       "chat_message",
		"receiverId": model.ID.String(),
		"content":    "anyone home?",
	})
	if err != nil {
		t.Fatalf("write frame: %v", err)
	}

	ack := readEnvelope(t, fanConn)
	if ack.Type != "message_sent" {
		t.Fatalf("expected message_sent even with offline receiver, got %q", ack.Type)
	}

	conversation, _ := e.db.GetConversation(fan.ID, model.ID)
	if len(conversation) != 1 {
		t.Fatalf("message must persist for offline receiver, got %d", len(conversation))
	}
	balance, _ := e.db.GetBalance(fan.ID)
	if balance != 4 {
		t.Fatalf("gems must be debited for offline receiver, got %d", balance)
	}
}

func TestWebSocketHandshakeRejectsBadToken(t *testing.T) {
	e := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws?token=not-a-token"
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("handshake with an invalid token must fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad token, got %+v", resp)
	}
}

func TestRESTSendMessageAppliesSameGemPolicy(t *testing.T) {
	e := newTestEnv(t)

	fan, fanToken := e.createUser(t, models.RoleFan, 2)
	model, modelToken := e.createUser(t, models.RoleModel, 0)

	send := func(content string) *http.Response {
		return e.doJSON(t, http.MethodPost, "/api/messages", fanToken, map[string]string{
			"receiverId": model.ID.String(),
			"content":    content,
		})
	}

	resp0 := send("one")
	if resp0.StatusCode != http.StatusCreated {
		t.Fatalf("first send expected 201, got %d", resp0.StatusCode)
	}
	var created dto.MessageResponse
	decodeBody(t, resp0, &created)
	if created.ID == uuid.Nil || created.CreatedAt.IsZero() {
		t.Fatalf("created message missing id or timestamp: %+v", created)
	}
	if resp := send("two"); resp.StatusCode != http.StatusCreated {
		t.Fatalf("second send expected 201, got %d", resp.StatusCode)
	}
	if resp := send("three"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("broke fan expected 400, got %d", resp.StatusCode)
	}

	balance, _ := e.db.GetBalance(fan.ID)
	if balance != 0 {
		t.Fatalf("expected balance 0 after two paid sends, got %d", balance)
	}

	// History is symmetric for both participants and oldest first.
	var mine []dto.MessageResponse
	resp := e.doJSON(t, http.MethodGet, "/api/messages/"+model.ID.String(), fanToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get conversation expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &mine)

	var theirs []dto.MessageResponse
	resp = e.doJSON(t, http.MethodGet, "/api/messages/"+fan.ID.String(), modelToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get conversation expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &theirs)

	if len(mine) != 2 || len(theirs) != 2 {
		t.Fatalf("both sides should see 2 messages, got %d and %d", len(mine), len(theirs))
	}
	if mine[0].Content != "one" || mine[1].Content != "two" {
		t.Fatalf("conversation not oldest-first: %+v", mine)
	}

	// The fan fetched first, before the model ever opened the conversation,
	// so the fan's own messages were still unread; the model's fetch marks
	// them read and the response reflects it.
	if mine[0].IsRead {
		t.Fatal("messages should be unread before the receiver opens the conversation")
	}
	if !theirs[0].IsRead || !theirs[1].IsRead {
		t.Fatalf("receiver's fetch should mark the conversation read: %+v", theirs)
	}

	// Models send for free.
	resp = e.doJSON(t, http.MethodPost, "/api/messages", modelToken, map[string]string{
		"receiverId": fan.ID.String(),
		"content":    "reply",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("model send expected 201, got %d", resp.StatusCode)
	}
}

func TestGemPurchaseAndHistory(t *testing.T) {
	e := newTestEnv(t)

	fan, fanToken := e.createUser(t, models.RoleFan, 5)

	resp := e.doJSON(t, http.MethodPost, "/api/gems/purchase", fanToken, map[string]interface{}{
		"amount":      50,
		"packageType": "starter",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purchase expected 200, got %d", resp.StatusCode)
	}

	balance, _ := e.db.GetBalance(fan.ID)
	if balance != 55 {
		t.Fatalf("expected balance 55 after purchase, got %d", balance)
	}

	var history []dto.TransactionResponse
	resp = e.doJSON(t, http.MethodGet, "/api/gems/history", fanToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &history)
	if len(history) != 1 || history[0].Type != models.TransactionPurchase || history[0].Amount != 50 {
		t.Fatalf("expected one purchase transaction, got %+v", history)
	}
}

func TestWorkerEndpoints(t *testing.T) {
	e := newTestEnv(t)

	fan, fanToken := e.createUser(t, models.RoleFan, 5)
	model, _ := e.createUser(t, models.RoleModel, 0)
	worker, workerToken := e.createUser(t, models.RoleWorker, 0)

	if _, err := e.db.AssignWorker(worker.ID, model.ID); err != nil {
		t.Fatalf("assign worker: %v", err)
	}

	resp := e.doJSON(t, http.MethodPost, "/api/messages", fanToken, map[string]string{
		"receiverId": model.ID.String(),
		"content":    "hello model",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send expected 201, got %d", resp.StatusCode)
	}

	var assigned []dto.UserResponse
	resp = e.doJSON(t, http.MethodGet, "/api/worker/assignments", workerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assignments expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &assigned)
	if len(assigned) != 1 || assigned[0].ID != model.ID {
		t.Fatalf("expected one assigned model, got %+v", assigned)
	}

	var conversations []dto.ConversationSummary
	resp = e.doJSON(t, http.MethodGet, "/api/worker/conversations", workerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("conversations expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &conversations)
	if len(conversations) != 1 {
		t.Fatalf("expected one conversation summary, got %d", len(conversations))
	}
	summary := conversations[0]
	if summary.Fan.ID != fan.ID || summary.Model.ID != model.ID || summary.LastMessage.Content != "hello model" {
		t.Fatalf("wrong conversation summary: %+v", summary)
	}

	// Worker endpoints are closed to other roles.
	resp = e.doJSON(t, http.MethodGet, "/api/worker/assignments", fanToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("fan on worker endpoint expected 403, got %d", resp.StatusCode)
	}
}

func TestAdminAssignmentEndpoints(t *testing.T) {
	e := newTestEnv(t)

	_, fanToken := e.createUser(t, models.RoleFan, 0)
	model, _ := e.createUser(t, models.RoleModel, 0)
	worker, _ := e.createUser(t, models.RoleWorker, 0)
	_, adminToken := e.createUser(t, models.RoleAdmin, 0)

	body := map[string]string{
		"workerId": worker.ID.String(),
		"modelId":  model.ID.String(),
	}

	resp := e.doJSON(t, http.MethodPost, "/api/admin/assign-worker", adminToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign expected 200, got %d", resp.StatusCode)
	}
	// Idempotent.
	resp = e.doJSON(t, http.MethodPost, "/api/admin/assign-worker", adminToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeated assign expected 200, got %d", resp.StatusCode)
	}

	workers, _ := e.db.GetAssignedWorkers(model.ID)
	if len(workers) != 1 {
		t.Fatalf("expected one assignment, got %v", workers)
	}

	// Pair roles are validated.
	resp = e.doJSON(t, http.MethodPost, "/api/admin/assign-worker", adminToken, map[string]string{
		"workerId": model.ID.String(),
		"modelId":  worker.ID.String(),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("swapped roles expected 400, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, http.MethodDelete, "/api/admin/assign-worker", adminToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unassign expected 200, got %d", resp.StatusCode)
	}
	workers, _ = e.db.GetAssignedWorkers(model.ID)
	if len(workers) != 0 {
		t.Fatalf("expected no assignments after unassign, got %v", workers)
	}

	// Admin endpoints are closed to other roles.
	resp = e.doJSON(t, http.MethodPost, "/api/admin/assign-worker", fanToken, body)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("fan on admin endpoint expected 403, got %d", resp.StatusCode)
	}
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	e := newTestEnv(t)

	var registered dto.AuthResponse
	resp := e.doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "fan_john",
		"email":    "john@example.com",
		"password": "password1",
		"role":     "fan",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &registered)
	if registered.Token == "" {
		t.Fatal("register must return a token")
	}
	if registered.User.Gems != 100 {
		t.Fatalf("new fan should hold the signup grant, got %d gems", registered.User.Gems)
	}

	var loggedIn dto.AuthResponse
	resp = e.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "john@example.com",
		"password": "password1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &loggedIn)

	resp = e.doJSON(t, http.MethodGet, "/api/users/me", loggedIn.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("users/me expected 200, got %d", resp.StatusCode)
	}
	var me dto.UserResponse
	decodeBody(t, resp, &me)
	if me.ID != registered.User.ID || me.Gems != 100 {
		t.Fatalf("unexpected current user: %+v", me)
	}

	resp = e.doJSON(t, http.MethodPost, "/api/auth/logout", loggedIn.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", resp.StatusCode)
	}
	resp = e.doJSON(t, http.MethodGet, "/api/users/me", loggedIn.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("blacklisted token expected 401, got %d", resp.StatusCode)
	}

	resp = e.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "john@example.com",
		"password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password expected 401, got %d", resp.StatusCode)
	}
}
