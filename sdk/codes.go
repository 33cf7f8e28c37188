package sdk

import "strconv"

// FlatErrorCode is a business error code carried in the `code` field of a Flat envelope.
type FlatErrorCode int

// CodeJWTSignFailed is the code the Flat server uses when the auth token has expired.
const CodeJWTSignFailed FlatErrorCode = 100006

const (
	CodeParamsCheckFailed FlatErrorCode = 100000 + iota
	CodeServerFail
	CodeCurrentProcessFailed
	CodeNotPermission
	CodeNeedLoginAgain
	CodeUnsupportedPlatform
)

const CodePhoneRegistered FlatErrorCode = 110002

const (
	CodeRoomNotFound FlatErrorCode = 200000 + iota
	CodeRoomIsEnded
	CodeRoomIsRunning
	CodeRoomNotIsRunning
	CodeRoomNotIsEnded
	CodeRoomNotIsIdle
)

const (
	CodePeriodicNotFound FlatErrorCode = 300000 + iota
	CodePeriodicIsEnded
	CodePeriodicSubRoomHasRunning
)

const CodeUserNotFound FlatErrorCode = 400000

const CodeRecordNotFound FlatErrorCode = 50000

const (
	CodeUploadConcurrentLimit FlatErrorCode = 700000 + iota
	CodeNotEnoughTotalUsage
	CodeFileSizeTooBig
	CodeFileNotFound
	CodeFileExists
)

const (
	CodeFileIsConverted FlatErrorCode = 80000 + iota
	CodeFileConvertFailed
	CodeFileIsConverting
	CodeFileIsConvertWaiting
)

const (
	CodeLoginGithubSuspended FlatErrorCode = 90000 + iota
	CodeLoginGithubURLMismatch
	CodeLoginGithubAccessDenied
)

var flatErrorCodeNames = map[FlatErrorCode]string{
	CodeParamsCheckFailed:         "ParamsCheckFailed",
	CodeServerFail:                "ServerFail",
	CodeCurrentProcessFailed:      "CurrentProcessFailed",
	CodeNotPermission:             "NotPermission",
	CodeNeedLoginAgain:            "NeedLoginAgain",
	CodeUnsupportedPlatform:       "UnsupportedPlatform",
	CodeJWTSignFailed:             "JWTSignFailed",
	CodePhoneRegistered:           "PhoneRegistered",
	CodeRoomNotFound:              "RoomNotFound",
	CodeRoomIsEnded:               "RoomIsEnded",
	CodeRoomIsRunning:             "RoomIsRunning",
	CodeRoomNotIsRunning:          "RoomNotIsRunning",
	CodeRoomNotIsEnded:            "RoomNotIsEnded",
	CodeRoomNotIsIdle:             "RoomNotIsIdle",
	CodePeriodicNotFound:          "PeriodicNotFound",
	CodePeriodicIsEnded:           "PeriodicIsEnded",
	CodePeriodicSubRoomHasRunning: "PeriodicSubRoomHasRunning",
	CodeUserNotFound:              "UserNotFound",
	CodeRecordNotFound:            "RecordNotFound",
	CodeUploadConcurrentLimit:     "UploadConcurrentLimit",
	CodeNotEnoughTotalUsage:       "NotEnoughTotalUsage",
	CodeFileSizeTooBig:            "FileSizeTooBig",
	CodeFileNotFound:              "FileNotFound",
	CodeFileExists:                "FileExists",
	CodeFileIsConverted:           "FileIsConverted",
	CodeFileConvertFailed:         "FileConvertFailed",
	CodeFileIsConverting:          "FileIsConverting",
	CodeFileIsConvertWaiting:      "FileIsConvertWaiting",
	CodeLoginGithubSuspended:      "LoginGithubSuspended",
	CodeLoginGithubURLMismatch:    "LoginGithubURLMismatch",
	CodeLoginGithubAccessDenied:   "LoginGithubAccessDenied",
}

// String returns the symbolic name of the code, or the number for unknown codes.
func (c FlatErrorCode) String() string {
	if name, ok := flatErrorCodeNames[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// Known reports whether the code is one the server documents.
func (c FlatErrorCode) Known() bool {
	_, ok := flatErrorCodeNames[c]
	return ok
}
