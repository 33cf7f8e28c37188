package requests

import (
	"context"
	"time"

	"github.com/birbparty/flat-client/sdk"
)

// RoomInfo is one entry of the room list.
type RoomInfo struct {
	RoomUUID       string    `json:"roomUUID"`
	PeriodicUUID   string    `json:"periodicUUID,omitempty"`
	OwnerUUID      string    `json:"ownerUUID"`
	OwnerName      string    `json:"ownerName"`
	OwnerAvatarURL string    `json:"ownerAvatarURL"`
	Title          string    `json:"title"`
	RoomType       string    `json:"roomType"`
	BeginTime      time.Time `json:"beginTime"`
	EndTime        time.Time `json:"endTime"`
	RoomStatus     string    `json:"roomStatus"`
	Region         string    `json:"region"`
	HasRecord      bool      `json:"hasRecord"`
	InviteCode     string    `json:"inviteCode"`
}

// RoomList fetches one page of the rooms the user can see.
type RoomList struct {
	sdk.Flat
	sdk.Returns[[]RoomInfo]

	Page int
}

// Path implements sdk.Request
func (RoomList) Path() string { return "/v1/room/list/all" }

// Task implements sdk.Request
func (r RoomList) Task() sdk.Task {
	return sdk.FormTask(map[string]any{"page": r.Page})
}

// RoomListFetcher adapts RoomList to a PageList.
func RoomListFetcher(p *sdk.Provider) sdk.PageFetcher[RoomInfo] {
	return func(ctx context.Context, page int) ([]RoomInfo, error) {
		return sdk.Do[[]RoomInfo](ctx, p, RoomList{Page: page})
	}
}

// ShareScreenInfo describes the screen sharing stream of a room.
type ShareScreenInfo struct {
	UID   uint   `json:"uid"`
	Token string `json:"token"`
}

// RoomPlayInfo holds what a client needs to enter a room.
type RoomPlayInfo struct {
	RoomType            string          `json:"roomType"`
	RoomUUID            string          `json:"roomUUID"`
	OwnerUUID           string          `json:"ownerUUID"`
	WhiteboardRoomToken string          `json:"whiteboardRoomToken"`
	WhiteboardRoomUUID  string          `json:"whiteboardRoomUUID"`
	RtcUID              uint            `json:"rtcUID"`
	RtcToken            string          `json:"rtcToken"`
	RtcShareScreen      ShareScreenInfo `json:"rtcShareScreen"`
	RtmToken            string          `json:"rtmToken"`
	Region              string          `json:"region"`
}

// JoinRoom joins a room by UUID or invite code. Rooms owned by another region
// are sent to that region's server.
type JoinRoom struct {
	sdk.Flat
	sdk.Returns[RoomPlayInfo]

	RoomUUID     string
	PeriodicUUID string
	// Servers routes the room to its region. Nil uses the provider's base URL.
	Servers *sdk.ServerRegistry
}

// Path implements sdk.Request
func (JoinRoom) Path() string { return "/v1/room/join" }

// Task implements sdk.Request
func (r JoinRoom) Task() sdk.Task {
	uuid := r.RoomUUID
	if r.PeriodicUUID != "" {
		uuid = r.PeriodicUUID
	}
	return sdk.JSONTask(map[string]string{"uuid": uuid})
}

// BaseURL implements sdk.BaseURLOverrider
func (r JoinRoom) BaseURL() (string, bool) {
	if r.Servers == nil {
		return "", false
	}
	return r.Servers.BaseURLFor(r.RoomUUID)
}

// RoomUserInfo is a member of a room.
type RoomUserInfo struct {
	Name      string `json:"name"`
	RtcUID    uint   `json:"rtcUID"`
	AvatarURL string `json:"avatarURL,omitempty"`
}

// Members fetches the members of a room, keyed by user UUID.
type Members struct {
	sdk.Flat
	sdk.Returns[map[string]RoomUserInfo]

	RoomUUID  string   `json:"roomUUID"`
	UsersUUID []string `json:"usersUUID"`
}

// Path implements sdk.Request
func (Members) Path() string { return "/v1/room/info/users" }

// Task implements sdk.Request
func (r Members) Task() sdk.Task { return sdk.JSONTask(r) }
