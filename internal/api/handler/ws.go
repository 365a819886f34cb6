package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"brewhaus/backend/internal/console"
	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/sales"
	"brewhaus/backend/internal/widget"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Storefront pages and the admin app live on other origins in dev.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ---- customer widget ----

type widgetCommand struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

type widgetState struct {
	State         string           `json:"state"`
	SessionID     string           `json:"sessionId,omitempty"`
	Draft         string           `json:"draft,omitempty"`
	Messages      []models.Message `json:"messages"`
	FailedIDs     []string         `json:"failedIds,omitempty"`
	HasNewMessage bool             `json:"hasNewMessage"`
	Error         string           `json:"error,omitempty"`
	Unavailable   bool             `json:"unavailable,omitempty"`
}

type widgetSession struct {
	ctrl    *widget.Controller
	client  *wsClient
	storeOK bool

	mu     sync.Mutex
	cmdErr string
}

func (ws *widgetSession) setCmdErr(text string) {
	ws.mu.Lock()
	ws.cmdErr = text
	ws.mu.Unlock()
}

func (ws *widgetSession) getCmdErr() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.cmdErr
}

// ServeWidgetSocket upgrades the storefront page's connection and binds it to
// a fresh widget controller. The controller's subscriptions are torn down
// with the socket.
func (h *Handler) ServeWidgetSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	ws := &widgetSession{storeOK: h.StoreOK}
	ws.ctrl = widget.NewController(h.Sessions, func() { ws.pushSnapshot() })
	ws.client = newWSClient(conn, ws)
	ws.pushSnapshot()
	ws.client.Run()
}

func (ws *widgetSession) HandleCommand(raw []byte) {
	var cmd widgetCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Printf("Error decoding widget command: %v", err)
		return
	}

	ws.setCmdErr("")
	switch cmd.Type {
	case "open":
		ws.ctrl.Open()
	case "close":
		ws.ctrl.Close()
	case "lead":
		if err := ws.ctrl.SubmitLead(cmd.Name, cmd.Email, cmd.Phone, cmd.Topic); err != nil {
			ws.setCmdErr("Please fill in your name and email.")
			ws.pushSnapshot()
		}
	case "send":
		if err := ws.ctrl.Send(cmd.Text); err != nil {
			ws.setCmdErr("Message could not be sent.")
			ws.pushSnapshot()
		}
	default:
		log.Printf("Unknown widget command %q", cmd.Type)
	}
}

func (ws *widgetSession) Teardown() {
	ws.ctrl.Teardown()
}

func (ws *widgetSession) pushSnapshot() {
	if ws.client == nil {
		return
	}

	var failed []string
	for _, p := range ws.ctrl.FailedMessages() {
		failed = append(failed, p.LocalID)
	}
	errText := ws.ctrl.Err()
	if errText == "" {
		errText = ws.getCmdErr()
	}
	snap := widgetState{
		State:         widgetStateName(ws.ctrl.State()),
		SessionID:     ws.ctrl.SessionID(),
		Draft:         ws.ctrl.Draft(),
		Messages:      ws.ctrl.Messages(),
		FailedIDs:     failed,
		HasNewMessage: ws.ctrl.HasNewMessage(),
		Error:         errText,
		Unavailable:   !ws.storeOK,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Error encoding widget snapshot: %v", err)
		return
	}
	ws.client.push(data)
}

func widgetStateName(s widget.State) string {
	switch s {
	case widget.StateLeadCapture:
		return "lead_capture"
	case widget.StateActive:
		return "active"
	default:
		return "closed"
	}
}

// ---- staff console ----

type consoleCommand struct {
	Type      string `json:"type"`
	Tab       string `json:"tab"`
	SessionID string `json:"sessionId"`
	ProductID string `json:"productId"`
	ReviewID  string `json:"reviewId"`
	Text      string `json:"text"`
}

type consoleState struct {
	Tab             string           `json:"tab"`
	Sessions        []models.Session `json:"sessions"`
	Reviews         []models.Review  `json:"reviews"`
	Thread          []models.Message `json:"thread"`
	SelectedSession string           `json:"selectedSessionId,omitempty"`
	SelectedProduct string           `json:"selectedProductId,omitempty"`
	SelectedReview  string           `json:"selectedReviewId,omitempty"`
	ChatBadge       int              `json:"chatBadge"`
	ReviewBadge     int              `json:"reviewBadge"`
	Sales           *sales.Summary   `json:"sales,omitempty"`
	Error           string           `json:"error,omitempty"`
	Unavailable     bool             `json:"unavailable,omitempty"`
}

type consoleSession struct {
	ctrl    *console.Controller
	client  *wsClient
	storeOK bool

	mu     sync.Mutex
	cmdErr string
}

func (cs *consoleSession) setCmdErr(text string) {
	cs.mu.Lock()
	cs.cmdErr = text
	cs.mu.Unlock()
}

func (cs *consoleSession) getCmdErr() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.cmdErr
}

// ServeConsoleSocket authenticates the staff caller, upgrades, and binds the
// socket to a console controller. Absent or invalid tokens are rejected
// before the upgrade so the admin app can reroute to its login view.
func (h *Handler) ServeConsoleSocket(c *gin.Context) {
	token := bearerToken(c)
	if _, err := h.Auth.Verify(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	cs := &consoleSession{storeOK: h.StoreOK}
	cs.ctrl = console.NewController(h.Sessions, h.Reviews, h.Auth, h.Mail, h.Sales,
		func() { cs.pushSnapshot() })
	cs.client = newWSClient(conn, cs)
	if err := cs.ctrl.Start(token); err != nil {
		conn.Close()
		return
	}
	cs.client.Run()
}

func (cs *consoleSession) HandleCommand(raw []byte) {
	var cmd consoleCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Printf("Error decoding console command: %v", err)
		return
	}

	cs.setCmdErr("")
	var err error
	switch cmd.Type {
	case "tab":
		cs.ctrl.SetTab(console.Tab(cmd.Tab))
	case "select_session":
		cs.ctrl.SelectSession(cmd.SessionID)
	case "deselect_session":
		cs.ctrl.DeselectSession()
	case "reply":
		err = cs.ctrl.Reply(cmd.Text)
	case "resolve":
		err = cs.ctrl.Resolve()
	case "select_review":
		cs.ctrl.SelectReview(cmd.ProductID, cmd.ReviewID)
	case "respond":
		err = cs.ctrl.RespondToReview(cmd.Text)
	default:
		log.Printf("Unknown console command %q", cmd.Type)
	}
	if err != nil {
		cs.setCmdErr(err.Error())
		cs.pushSnapshot()
	}
}

func (cs *consoleSession) Teardown() {
	cs.ctrl.Stop()
}

func (cs *consoleSession) pushSnapshot() {
	if cs.client == nil {
		return
	}

	errText := cs.ctrl.Err()
	if errText == "" {
		errText = cs.getCmdErr()
	}
	snap := consoleState{
		Tab:             string(cs.ctrl.ActiveTab()),
		Sessions:        cs.ctrl.Sessions(),
		Reviews:         cs.ctrl.Reviews(),
		Thread:          cs.ctrl.Thread(),
		SelectedSession: cs.ctrl.SelectedSession(),
		ChatBadge:       cs.ctrl.ChatBadge(),
		ReviewBadge:     cs.ctrl.ReviewBadge(),
		Error:           errText,
		Unavailable:     !cs.storeOK,
	}
	snap.SelectedProduct, snap.SelectedReview = cs.ctrl.SelectedReview()
	if cs.ctrl.ActiveTab() == console.TabSales {
		if summary, err := cs.ctrl.SalesSummary(); err == nil {
			snap.Sales = &summary
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Error encoding console snapshot: %v", err)
		return
	}
	cs.client.push(data)
}
