package requests

import (
	"github.com/birbparty/flat-client/sdk"
)

// ConvertType is the kind of a Netless conversion.
type ConvertType string

const (
	ConvertStatic  ConvertType = "static"
	ConvertDynamic ConvertType = "dynamic"
)

// ConversionStatus is the state of a conversion task.
type ConversionStatus string

const (
	ConversionWaiting    ConversionStatus = "Waiting"
	ConversionConverting ConversionStatus = "Converting"
	ConversionFinished   ConversionStatus = "Finished"
	ConversionFail       ConversionStatus = "Fail"
)

// ConversionProgress reports how far a conversion got.
type ConversionProgress struct {
	TotalPageSize       int             `json:"totalPageSize"`
	ConvertedPageSize   int             `json:"convertedPageSize"`
	ConvertedPercentage float64         `json:"convertedPercentage"`
	ConvertedFileList   []ConvertedFile `json:"convertedFileList,omitempty"`
	CurrentStep         string          `json:"currentStep,omitempty"`
}

// ConvertedFile is one page produced by a conversion.
type ConvertedFile struct {
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	ConversionFileURL string `json:"conversionFileUrl"`
	PreviewURL        string `json:"preview,omitempty"`
}

// ConversionTask is the Netless conversion task resource.
type ConversionTask struct {
	UUID         string             `json:"uuid"`
	Type         ConvertType        `json:"type"`
	Status       ConversionStatus   `json:"status"`
	FailedReason string             `json:"failedReason,omitempty"`
	Progress     ConversionProgress `json:"progress"`
}

// Done reports whether the task reached a final state.
func (t ConversionTask) Done() bool {
	return t.Status == ConversionFinished || t.Status == ConversionFail
}

// ConversionProgressQuery polls a conversion task. Netless authenticates it
// with the task token issued when the conversion started.
type ConversionProgressQuery struct {
	sdk.Netless
	sdk.Returns[ConversionTask]

	TaskUUID  string
	TaskToken string
	Type      ConvertType
	Region    string
}

// Path implements sdk.Request
func (r ConversionProgressQuery) Path() string {
	return "/services/conversion/tasks/" + r.TaskUUID
}

// Task implements sdk.Request
func (r ConversionProgressQuery) Task() sdk.Task {
	typ := r.Type
	if typ == "" {
		typ = ConvertDynamic
	}
	return sdk.FormTask(map[string]any{"type": string(typ)})
}

// Headers implements sdk.HeaderProvider
func (r ConversionProgressQuery) Headers() map[string]string {
	h := map[string]string{"token": r.TaskToken}
	if r.Region != "" {
		h["region"] = r.Region
	}
	return h
}

// ConvertTaskInfo identifies a started conversion.
type ConvertTaskInfo struct {
	TaskToken string `json:"taskToken"`
	TaskUUID  string `json:"taskUUID"`
}

// ConvertStartResult is returned by StartConvert. Exactly one field is set,
// depending on which converter the server picked.
type ConvertStartResult struct {
	WhiteboardConvert   *ConvertTaskInfo `json:"whiteboardConvert,omitempty"`
	WhiteboardProjector *ConvertTaskInfo `json:"whiteboardProjector,omitempty"`
}

// Info returns the task of whichever converter was used.
func (r ConvertStartResult) Info() (ConvertTaskInfo, bool) {
	if r.WhiteboardProjector != nil {
		return *r.WhiteboardProjector, true
	}
	if r.WhiteboardConvert != nil {
		return *r.WhiteboardConvert, true
	}
	return ConvertTaskInfo{}, false
}

// StartConvert asks the Flat server to convert an uploaded file.
type StartConvert struct {
	sdk.Flat
	sdk.Returns[ConvertStartResult]

	FileUUID string `json:"fileUUID"`
}

// Path implements sdk.Request
func (StartConvert) Path() string { return "/v2/cloud-storage/convert/start" }

// Task implements sdk.Request
func (r StartConvert) Task() sdk.Task { return sdk.JSONTask(r) }
