package devserver

import (
	"strings"
	"time"

	"github.com/birbparty/flat-client/sdk"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const localsToken = "token"

// Handler serves the mock Flat, Agora and Netless routes
type Handler struct {
	cfg     *Config
	state   *state
	started time.Time
}

func newHandler(cfg *Config, st *state) *Handler {
	return &Handler{cfg: cfg, state: st, started: time.Now()}
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Status: 0, Data: data})
}

// fail answers with a business failure. Flat reports those with HTTP 200.
func fail(c *fiber.Ctx, code sdk.FlatErrorCode) error {
	return c.JSON(Envelope{Status: 1, Code: int(code)})
}

// RequireAuth rejects requests without a live Bearer token
func (h *Handler) RequireAuth(c *fiber.Ctx) error {
	// c.Get aliases the request buffer, which fasthttp reuses after the handler returns
	token, found := strings.CutPrefix(utils.CopyString(c.Get(fiber.HeaderAuthorization)), "Bearer ")
	if !found || token == "" {
		return fail(c, sdk.CodeNeedLoginAgain)
	}
	if !h.state.authorize(token) {
		return fail(c, sdk.CodeJWTSignFailed)
	}
	c.Locals(localsToken, token)
	return c.Next()
}

// Login handles POST /v2/login/phone and /v2/login/email
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, sdk.CodeParamsCheckFailed)
	}

	account, want := req.Phone, h.cfg.Phone
	if strings.HasSuffix(c.Path(), "/email") {
		account, want = req.Email, h.cfg.Email
	}
	if account == "" {
		return fail(c, sdk.CodeParamsCheckFailed)
	}
	if account != want || req.Password != h.cfg.Password {
		return fail(c, sdk.CodeUserNotFound)
	}
	return ok(c, h.state.login())
}

// Logout handles POST /v1/logout
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.state.expire(c.Locals(localsToken).(string))
	return ok(c, fiber.Map{})
}

// ListRooms handles POST /v1/room/list/all?page=N
func (h *Handler) ListRooms(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		return fail(c, sdk.CodeParamsCheckFailed)
	}
	return ok(c, h.state.page(page))
}

// JoinRoom handles POST /v1/room/join
func (h *Handler) JoinRoom(c *fiber.Ctx) error {
	var req JoinRequest
	if err := c.BodyParser(&req); err != nil || req.UUID == "" {
		return fail(c, sdk.CodeParamsCheckFailed)
	}

	room, found := h.state.room(req.UUID)
	if !found {
		return fail(c, sdk.CodeRoomNotFound)
	}

	uid := rtcUID(h.state.user.UserUUID)
	return ok(c, JoinResponse{
		RoomType:            room.RoomType,
		RoomUUID:            room.RoomUUID,
		OwnerUUID:           room.OwnerUUID,
		WhiteboardRoomToken: "NETLESSROOM_" + uuid.NewString(),
		WhiteboardRoomUUID:  uuid.NewSHA1(roomSeed, []byte("board-"+room.RoomUUID)).String(),
		RtcUID:              uid,
		RtcToken:            "rtc-" + uuid.NewString(),
		RtcShareScreen:      ShareScreenResult{UID: uid + 1_000_000, Token: "rtc-share-" + uuid.NewString()},
		RtmToken:            "rtm-" + uuid.NewString(),
		Region:              room.Region,
	})
}

// Members handles POST /v1/room/info/users
func (h *Handler) Members(c *fiber.Ctx) error {
	var req MembersRequest
	if err := c.BodyParser(&req); err != nil || req.RoomUUID == "" {
		return fail(c, sdk.CodeParamsCheckFailed)
	}
	if _, found := h.state.room(req.RoomUUID); !found {
		return fail(c, sdk.CodeRoomNotFound)
	}

	members := make(map[string]MemberResponse, len(req.UsersUUID))
	for _, u := range req.UsersUUID {
		name := "Guest " + u[:min(len(u), 6)]
		if u == h.state.user.UserUUID {
			name = h.state.user.Name
		}
		members[u] = MemberResponse{Name: name, RtcUID: rtcUID(u), AvatarURL: "https://flat.test/avatar.png"}
	}
	return ok(c, members)
}

// StartConvert handles POST /v2/cloud-storage/convert/start
func (h *Handler) StartConvert(c *fiber.Ctx) error {
	var req ConvertStartRequest
	if err := c.BodyParser(&req); err != nil || req.FileUUID == "" {
		return fail(c, sdk.CodeFileNotFound)
	}
	task := h.state.startConversion()
	return ok(c, ConvertStartResponse{
		WhiteboardProjector: &ConvertTaskResponse{TaskUUID: task.uuid, TaskToken: task.token},
	})
}

// ConversionStatus handles GET /services/conversion/tasks/:uuid. Netless
// answers without an envelope and reports failures with HTTP statuses.
func (h *Handler) ConversionStatus(c *fiber.Ctx) error {
	token := c.Get("token")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing token"})
	}
	task, found := h.state.poll(c.Params("uuid"), token)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "task not found"})
	}
	task.Type = c.Query("type", "dynamic")
	return c.JSON(task)
}

// HistoryQuery handles POST /dev/v2/project/:appid/rtm/message/history/query
func (h *Handler) HistoryQuery(c *fiber.Ctx) error {
	if c.Get("x-agora-token") == "" || c.Get("x-agora-uid") == "" {
		return c.JSON(fiber.Map{"result": "failed", "code": "unauthorized"})
	}
	if c.Params("appid") != h.cfg.AgoraAppID {
		return c.JSON(fiber.Map{"result": "failed", "code": "invalid_appid"})
	}

	var req HistoryQueryRequest
	if err := c.BodyParser(&req); err != nil || req.Filter.Destination == "" {
		return c.JSON(fiber.Map{"result": "failed", "code": "invalid_argument"})
	}

	handle := h.state.addQuery(historyQuery{channel: req.Filter.Destination, limit: req.Limit})
	return c.JSON(fiber.Map{
		"result":   "success",
		"offset":   req.Offset,
		"limit":    req.Limit,
		"order":    req.Order,
		"location": c.Path() + "/" + handle,
	})
}

// HistoryResult handles GET /dev/v2/project/:appid/rtm/message/history/query/:handle
func (h *Handler) HistoryResult(c *fiber.Ctx) error {
	msgs, found := h.state.messages(c.Params("handle"))
	if !found {
		return c.JSON(fiber.Map{"result": "failed", "code": "not_found"})
	}
	return c.JSON(fiber.Map{"result": "success", "code": "ok", "messages": msgs})
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Service: "flat-devserver",
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	})
}
