package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/birbparty/flat-client/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Host:       "127.0.0.1",
		Port:       8787,
		Phone:      "+8613800000000",
		Email:      "dev@flat.test",
		Password:   "flat-dev",
		RoomCount:  120,
		AgoraAppID: "dev-app",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return resp.StatusCode, out
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	_, body := doJSON(t, s, http.MethodPost, "/v2/login/email", "", `{"email":"dev@flat.test","password":"flat-dev"}`)
	require.Equal(t, float64(0), body["status"])
	return body["data"].(map[string]any)["token"].(string)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode float64
	}{
		{name: "phone", path: "/v2/login/phone", body: `{"phone":"+8613800000000","password":"flat-dev"}`},
		{name: "email", path: "/v2/login/email", body: `{"email":"dev@flat.test","password":"flat-dev"}`},
		{name: "wrong password", path: "/v2/login/email", body: `{"email":"dev@flat.test","password":"nope"}`, wantCode: float64(sdk.CodeUserNotFound)},
		{name: "email on phone route", path: "/v2/login/phone", body: `{"email":"dev@flat.test","password":"flat-dev"}`, wantCode: float64(sdk.CodeParamsCheckFailed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, s, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, http.StatusOK, status)
			if tt.wantCode == 0 {
				assert.Equal(t, float64(0), body["status"])
				assert.NotEmpty(t, body["data"].(map[string]any)["token"])
				return
			}
			assert.Equal(t, float64(1), body["status"])
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	_, body := doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=1", "", `{}`)
	assert.Equal(t, float64(sdk.CodeNeedLoginAgain), body["code"])

	_, body = doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=1", "expired", `{}`)
	assert.Equal(t, float64(sdk.CodeJWTSignFailed), body["code"])

	_, body = doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=1", token, `{}`)
	assert.Equal(t, float64(0), body["status"])

	s.ExpireToken(token)
	_, body = doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=1", token, `{}`)
	assert.Equal(t, float64(sdk.CodeJWTSignFailed), body["code"])
}

func TestLogout_RevokedTokenSurvivesLaterRequests(t *testing.T) {
	s := newTestServer(t)
	revoked := login(t, s)
	other := login(t, s)

	_, body := doJSON(t, s, http.MethodPost, "/v1/logout", revoked, `{}`)
	require.Equal(t, float64(0), body["status"])

	// later requests reuse the same request buffers
	for i := 0; i < 20; i++ {
		_, body = doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=1", other, `{}`)
		require.Equal(t, float64(0), body["status"])
	}

	s.state.mu.Lock()
	expired, known := s.state.tokens[revoked]
	stillLive := !s.state.tokens[other]
	s.state.mu.Unlock()
	assert.True(t, known, "revoked token is still a key")
	assert.True(t, expired)
	assert.True(t, stillLive)

	_, body = doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=1", revoked, `{}`)
	assert.Equal(t, float64(sdk.CodeJWTSignFailed), body["code"])
}

func TestListRooms_Pages(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	tests := []struct {
		page string
		want int
	}{
		{"1", 50},
		{"2", 50},
		{"3", 20},
		{"4", 0},
	}
	for _, tt := range tests {
		t.Run("page "+tt.page, func(t *testing.T) {
			_, body := doJSON(t, s, http.MethodPost, "/v1/room/list/all?page="+tt.page, token, `{}`)
			require.Equal(t, float64(0), body["status"])
			assert.Len(t, body["data"], tt.want)
		})
	}

	_, body := doJSON(t, s, http.MethodPost, "/v1/room/list/all?page=0", token, `{}`)
	assert.Equal(t, float64(sdk.CodeParamsCheckFailed), body["code"])
}

func TestJoinRoom(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)
	room := s.state.rooms[0]

	_, body := doJSON(t, s, http.MethodPost, "/v1/room/join", token, `{"uuid":"`+room.RoomUUID+`"}`)
	require.Equal(t, float64(0), body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, room.RoomUUID, data["roomUUID"])
	assert.NotEmpty(t, data["rtmToken"])

	_, body = doJSON(t, s, http.MethodPost, "/v1/room/join", token, `{"uuid":"nope"}`)
	assert.Equal(t, float64(sdk.CodeRoomNotFound), body["code"])
}

func TestConversionStatus(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	_, body := doJSON(t, s, http.MethodPost, "/v2/cloud-storage/convert/start", token, `{"fileUUID":"f1"}`)
	require.Equal(t, float64(0), body["status"])
	task := body["data"].(map[string]any)["whiteboardProjector"].(map[string]any)

	poll := func(taskToken string) (int, map[string]any) {
		req := httptest.NewRequest(http.MethodGet, "/services/conversion/tasks/"+task["taskUUID"].(string)+"?type=static", nil)
		req.Header.Set("token", taskToken)
		resp, err := s.App().Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	var statuses []string
	for i := 0; i < 3; i++ {
		code, out := poll(task["taskToken"].(string))
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "static", out["type"])
		statuses = append(statuses, out["status"].(string))
	}
	assert.Equal(t, []string{"Waiting", "Converting", "Finished"}, statuses)

	code, _ := poll("wrong")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHistory(t *testing.T) {
	s := newTestServer(t)

	query := func(headers map[string]string, appID string) map[string]any {
		req := httptest.NewRequest(http.MethodPost, "/dev/v2/project/"+appID+"/rtm/message/history/query",
			strings.NewReader(`{"filter":{"destination":"room-1"},"limit":100,"order":"desc"}`))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := s.App().Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	assert.Equal(t, "failed", query(nil, "dev-app")["result"])
	creds := map[string]string{"x-agora-token": "rtm", "x-agora-uid": "u1"}
	assert.Equal(t, "failed", query(creds, "other-app")["result"])

	out := query(creds, "dev-app")
	require.Equal(t, "success", out["result"])
	location := out["location"].(string)
	assert.True(t, strings.HasPrefix(location, "/dev/v2/project/dev-app/rtm/message/history/query/"))

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, location, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "success", result["result"])
	assert.Len(t, result["messages"], 3)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http_requests_total")

	status, _ = doJSON(t, s, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	_, err := New(cfg)
	assert.Error(t, err)

	t.Setenv("DEVSERVER_PORT", "9000")
	t.Setenv("DEVSERVER_ROOMS", "7")
	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", loaded.Address())
	assert.Equal(t, 7, loaded.RoomCount)
}
