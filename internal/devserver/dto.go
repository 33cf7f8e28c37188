package devserver

// Envelope is the Flat response wrapper
type Envelope struct {
	Status int `json:"status"`
	Code   int `json:"code,omitempty"`
	Data   any `json:"data,omitempty"`
}

// LoginRequest is the body of both password login routes
type LoginRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is returned by login
type UserResponse struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	UserUUID string `json:"userUUID"`
	Token    string `json:"token"`
	HasPhone bool   `json:"hasPhone"`
}

// RoomResponse is one entry of the room list. Times are epoch milliseconds.
type RoomResponse struct {
	RoomUUID       string `json:"roomUUID"`
	PeriodicUUID   string `json:"periodicUUID,omitempty"`
	OwnerUUID      string `json:"ownerUUID"`
	OwnerName      string `json:"ownerName"`
	OwnerAvatarURL string `json:"ownerAvatarURL"`
	Title          string `json:"title"`
	RoomType       string `json:"roomType"`
	BeginTime      int64  `json:"beginTime"`
	EndTime        int64  `json:"endTime"`
	RoomStatus     string `json:"roomStatus"`
	Region         string `json:"region"`
	HasRecord      bool   `json:"hasRecord"`
	InviteCode     string `json:"inviteCode"`
}

// JoinRequest is the body of /v1/room/join
type JoinRequest struct {
	UUID string `json:"uuid"`
}

// JoinResponse carries the tokens needed to enter a room
type JoinResponse struct {
	RoomType            string            `json:"roomType"`
	RoomUUID            string            `json:"roomUUID"`
	OwnerUUID           string            `json:"ownerUUID"`
	WhiteboardRoomToken string            `json:"whiteboardRoomToken"`
	WhiteboardRoomUUID  string            `json:"whiteboardRoomUUID"`
	RtcUID              uint32            `json:"rtcUID"`
	RtcToken            string            `json:"rtcToken"`
	RtcShareScreen      ShareScreenResult `json:"rtcShareScreen"`
	RtmToken            string            `json:"rtmToken"`
	Region              string            `json:"region"`
}

// ShareScreenResult is the screen sharing identity of a join
type ShareScreenResult struct {
	UID   uint32 `json:"uid"`
	Token string `json:"token"`
}

// MembersRequest is the body of /v1/room/info/users
type MembersRequest struct {
	RoomUUID  string   `json:"roomUUID"`
	UsersUUID []string `json:"usersUUID"`
}

// MemberResponse describes one room member
type MemberResponse struct {
	Name      string `json:"name"`
	RtcUID    uint32 `json:"rtcUID"`
	AvatarURL string `json:"avatarURL"`
}

// ConvertStartRequest is the body of /v2/cloud-storage/convert/start
type ConvertStartRequest struct {
	FileUUID string `json:"fileUUID"`
}

// ConvertTaskResponse identifies a whiteboard conversion task
type ConvertTaskResponse struct {
	TaskToken string `json:"taskToken"`
	TaskUUID  string `json:"taskUUID"`
}

// ConvertStartResponse is returned by convert start
type ConvertStartResponse struct {
	WhiteboardProjector *ConvertTaskResponse `json:"whiteboardProjector,omitempty"`
}

// ConversionTaskResponse is the Netless task status, sent without an envelope
type ConversionTaskResponse struct {
	UUID     string             `json:"uuid"`
	Type     string             `json:"type"`
	Status   string             `json:"status"`
	Progress ConversionProgress `json:"progress"`
}

// ConversionProgress reports converted pages
type ConversionProgress struct {
	TotalPageSize       int     `json:"totalPageSize"`
	ConvertedPageSize   int     `json:"convertedPageSize"`
	ConvertedPercentage float64 `json:"convertedPercentage"`
	CurrentStep         string  `json:"currentStep,omitempty"`
}

// HistoryQueryRequest is the Agora RTM history query body
type HistoryQueryRequest struct {
	Filter struct {
		Destination string `json:"destination"`
		StartTime   string `json:"start_time"`
		EndTime     string `json:"end_time"`
	} `json:"filter"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Order  string `json:"order"`
}

// HistoryMessageResponse is one RTM message, ms in epoch milliseconds
type HistoryMessageResponse struct {
	Src         string `json:"src"`
	Dst         string `json:"dst"`
	MessageType string `json:"message_type"`
	Payload     string `json:"payload"`
	Ms          int64  `json:"ms"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}
