package devserver

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/birbparty/flat-client/sdk"
	"github.com/google/uuid"
)

// roomSeed names seeded rooms so their UUIDs are stable across restarts
var roomSeed = uuid.MustParse("6f1b7c1e-4a8e-4c53-9a1e-3f0b6a2d9c10")

type conversion struct {
	uuid  string
	token string
	polls int
}

type historyQuery struct {
	channel string
	limit   int
}

// state is the in-memory world the dev server serves
type state struct {
	mu sync.Mutex

	user    UserResponse
	tokens  map[string]bool // token -> expired
	rooms   []RoomResponse
	byUUID  map[string]int
	tasks   map[string]*conversion
	queries map[string]historyQuery
}

func newState(cfg *Config) *state {
	s := &state{
		user: UserResponse{
			Name:     "Flat Dev",
			Avatar:   "https://flat.test/avatar.png",
			UserUUID: uuid.NewSHA1(roomSeed, []byte("user")).String(),
			HasPhone: cfg.Phone != "",
		},
		tokens:  make(map[string]bool),
		byUUID:  make(map[string]int),
		tasks:   make(map[string]*conversion),
		queries: make(map[string]historyQuery),
	}

	begin := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < cfg.RoomCount; i++ {
		start := begin.Add(time.Duration(i) * time.Hour)
		room := RoomResponse{
			RoomUUID:       uuid.NewSHA1(roomSeed, []byte(fmt.Sprintf("room-%d", i))).String(),
			OwnerUUID:      s.user.UserUUID,
			OwnerName:      s.user.Name,
			OwnerAvatarURL: s.user.Avatar,
			Title:          fmt.Sprintf("Room %03d", i+1),
			RoomType:       "BigClass",
			BeginTime:      start.UnixMilli(),
			EndTime:        start.Add(45 * time.Minute).UnixMilli(),
			RoomStatus:     "Idle",
			Region:         "cn-hz",
			InviteCode:     fmt.Sprintf("1%09d", i),
		}
		s.byUUID[room.RoomUUID] = len(s.rooms)
		s.rooms = append(s.rooms, room)
	}
	return s
}

func (s *state) login() UserResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.user
	user.Token = uuid.NewString()
	s.tokens[user.Token] = false
	return user
}

// authorize reports whether token is a live session token
func (s *state) authorize(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired, ok := s.tokens[token]
	return ok && !expired
}

func (s *state) expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
}

func (s *state) expireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token := range s.tokens {
		s.tokens[token] = true
	}
}

// page returns rooms of a 1-based page
func (s *state) page(n int) []RoomResponse {
	start := (n - 1) * sdk.PageSize
	if start >= len(s.rooms) {
		return []RoomResponse{}
	}
	end := min(start+sdk.PageSize, len(s.rooms))
	return s.rooms[start:end]
}

func (s *state) room(uuid string) (RoomResponse, bool) {
	i, ok := s.byUUID[uuid]
	if !ok {
		return RoomResponse{}, false
	}
	return s.rooms[i], true
}

func (s *state) startConversion() *conversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &conversion{uuid: uuid.NewString(), token: "NETLESSTASK_" + uuid.NewString()}
	s.tasks[task.uuid] = task
	return task
}

// poll advances a conversion one step per query: Waiting, Converting, Finished
func (s *state) poll(taskUUID, token string) (ConversionTaskResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskUUID]
	if !ok || task.token != token {
		return ConversionTaskResponse{}, false
	}
	task.polls++

	const pages = 12
	resp := ConversionTaskResponse{UUID: task.uuid, Progress: ConversionProgress{TotalPageSize: pages}}
	switch {
	case task.polls <= 1:
		resp.Status = "Waiting"
	case task.polls == 2:
		resp.Status = "Converting"
		resp.Progress.ConvertedPageSize = pages / 2
		resp.Progress.ConvertedPercentage = 50
		resp.Progress.CurrentStep = "Extracting"
	default:
		resp.Status = "Finished"
		resp.Progress.ConvertedPageSize = pages
		resp.Progress.ConvertedPercentage = 100
	}
	return resp, true
}

func (s *state) addQuery(q historyQuery) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := uuid.NewString()
	s.queries[handle] = q
	return handle
}

func (s *state) messages(handle string) ([]HistoryMessageResponse, bool) {
	s.mu.Lock()
	q, ok := s.queries[handle]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	limit := q.limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	msgs := make([]HistoryMessageResponse, 0, 3)
	for i := 0; i < 3 && i < limit; i++ {
		msgs = append(msgs, HistoryMessageResponse{
			Src:         s.user.UserUUID,
			Dst:         q.channel,
			MessageType: "group_message",
			Payload:     fmt.Sprintf("message %d", i+1),
			Ms:          base.Add(time.Duration(i) * time.Minute).UnixMilli(),
		})
	}
	return msgs, true
}

// rtcUID derives a stable numeric id for a user
func rtcUID(userUUID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userUUID))
	return h.Sum32()%1_000_000 + 1
}
