package devserver_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/birbparty/flat-client/internal/devserver"
	"github.com/birbparty/flat-client/internal/kvstore"
	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/birbparty/flat-client/sdk"
	"github.com/birbparty/flat-client/sdk/requests"
	"github.com/prometheus/client_golang/prometheus"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	server   *devserver.Server
	provider *sdk.Provider
	session  *sdk.SessionStore
	main     *sdk.SerialQueue
	metrics  *telemetry.Metrics
}

func startHarness(t *testing.T) *harness {
	t.Helper()

	server, err := devserver.New(&devserver.Config{
		Host: "127.0.0.1", Port: 1, Phone: "+8613800000000", Email: "dev@flat.test",
		Password: "flat-dev", RoomCount: 120, AgoraAppID: "dev-app",
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })
	url := "http://" + ln.Addr().String()

	session := sdk.NewSessionStore(kvstore.NewMemoryStore())
	main := sdk.NewSerialQueue()
	t.Cleanup(main.Close)

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	logger, _ := test.NewNullLogger()
	config := sdk.DefaultConfig().
		WithFlatBaseURL(url).
		WithAgoraBaseURL(url).
		WithNetlessBaseURL(url).
		WithTimeout(5 * time.Second).
		WithTransport(telemetry.NewTracingTransport(nil)).
		WithObserver(sdk.NewCompositeObserver(telemetry.NewPrometheusObserver(metrics), telemetry.TracingObserver{})).
		WithLogger(logger).
		WithMainExecutor(main)

	provider, err := sdk.NewProvider(config, session)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	return &harness{server: server, provider: provider, session: session, main: main, metrics: metrics}
}

func (h *harness) login(t *testing.T) sdk.User {
	t.Helper()
	ctx := context.Background()
	user, err := sdk.Do[sdk.User](ctx, h.provider, requests.EmailLogin("dev@flat.test", "flat-dev"))
	require.NoError(t, err)
	require.NoError(t, h.session.ProcessLoginSuccess(ctx, user))
	return user
}

func TestEndToEnd_LoginAndPagedRooms(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()

	_, err := sdk.Do[sdk.User](ctx, h.provider, requests.EmailLogin("dev@flat.test", "wrong"))
	code, ok := serverCode(err)
	require.True(t, ok)
	assert.Equal(t, sdk.CodeUserNotFound, code)

	user := h.login(t)
	assert.NotEmpty(t, user.Token)

	var notified []int
	rooms := sdk.NewPageList(requests.RoomListFetcher(h.provider), func(items []requests.RoomInfo, _ bool) {
		notified = append(notified, len(items))
	})
	require.NoError(t, rooms.Refresh(ctx))
	for rooms.CanLoadMore() {
		require.NoError(t, rooms.LoadMore(ctx))
	}

	assert.Equal(t, []int{50, 100, 120}, notified)
	assert.Equal(t, 3, rooms.CurrentPage())
	first := rooms.Items()[0]
	assert.Equal(t, "Room 001", first.Title)
	assert.Equal(t, 2024, first.BeginTime.Year(), "millisecond dates decode")
	assert.Equal(t, 45*time.Minute, first.EndTime.Sub(first.BeginTime))

	// pull to refresh resets to the first page
	require.NoError(t, rooms.Refresh(ctx))
	assert.Len(t, rooms.Items(), 50)
}

func TestEndToEnd_JoinMembersAndConversion(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()
	user := h.login(t)

	list, err := sdk.Do[[]requests.RoomInfo](ctx, h.provider, requests.RoomList{Page: 1})
	require.NoError(t, err)
	room := list[0]

	play, err := sdk.Do[requests.RoomPlayInfo](ctx, h.provider, requests.JoinRoom{RoomUUID: room.RoomUUID})
	require.NoError(t, err)
	assert.Equal(t, room.RoomUUID, play.RoomUUID)

	_, err = sdk.Do[requests.RoomPlayInfo](ctx, h.provider, requests.JoinRoom{RoomUUID: "missing"})
	code, ok := serverCode(err)
	require.True(t, ok)
	assert.Equal(t, sdk.CodeRoomNotFound, code)

	members, err := sdk.Do[map[string]requests.RoomUserInfo](ctx, h.provider, requests.Members{
		RoomUUID: room.RoomUUID, UsersUUID: []string{user.UserUUID, "guest-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, user.Name, members[user.UserUUID].Name)
	assert.Len(t, members, 2)

	started, err := sdk.Do[requests.ConvertStartResult](ctx, h.provider, requests.StartConvert{FileUUID: "file-1"})
	require.NoError(t, err)
	info, ok := started.Info()
	require.True(t, ok)

	var task requests.ConversionTask
	for i := 0; i < 5 && !task.Done(); i++ {
		task, err = sdk.Do[requests.ConversionTask](ctx, h.provider, requests.ConversionProgressQuery{
			TaskUUID: info.TaskUUID, TaskToken: info.TaskToken, Type: requests.ConvertStatic,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, requests.ConversionFinished, task.Status)
	assert.Equal(t, requests.ConvertStatic, task.Type)

	_, err = sdk.Do[requests.ConversionTask](ctx, h.provider, requests.ConversionProgressQuery{TaskUUID: info.TaskUUID, TaskToken: "bad"})
	var apiErr *sdk.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, sdk.ErrorTypeStatus, apiErr.Type)
}

func TestEndToEnd_AgoraHistory(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()
	h.provider.AgoraCredentials().Set("rtm-token", "uid-1")

	source := requests.NewHistoryMessageSource("dev-app", "room-1", time.Now().Add(-time.Hour), time.Now())
	location, err := sdk.Do[string](ctx, h.provider, source)
	require.NoError(t, err)

	msgs, err := sdk.Do[[]requests.HistoryMessage](ctx, h.provider, requests.HistoryMessages{Location: location})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "room-1", msgs[0].Dst)
	assert.Equal(t, 2024, msgs[0].Ms.Year())

	_, err = sdk.Do[string](ctx, h.provider, requests.NewHistoryMessageSource("other-app", "room-1", time.Now(), time.Now()))
	assert.True(t, sdk.IsServerError(err))
}

func TestEndToEnd_ExpiredTokenLogsOut(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()
	user := h.login(t)

	logouts := 0
	h.session.Subscribe(sdk.SessionDelegateFuncs{Logout: func() { logouts++ }})

	h.server.ExpireToken(user.Token)
	_, err := sdk.Do[[]requests.RoomInfo](ctx, h.provider, requests.RoomList{Page: 1})
	require.Error(t, err)
	assert.True(t, sdk.IsSessionExpired(err))

	h.main.Drain()
	assert.False(t, h.session.IsAuthenticated())
	assert.Equal(t, 1, logouts)
	assert.Equal(t, 1.0, prom.ToFloat64(h.metrics.SessionExpiries))

	// once logged out the server asks for a login instead
	_, err = sdk.Do[[]requests.RoomInfo](ctx, h.provider, requests.RoomList{Page: 1})
	code, ok := serverCode(err)
	require.True(t, ok)
	assert.Equal(t, sdk.CodeNeedLoginAgain, code)
	h.main.Drain()
	assert.Equal(t, 1, logouts)
}

func TestEndToEnd_ServerLogout(t *testing.T) {
	h := startHarness(t)
	ctx := context.Background()
	h.login(t)

	_, err := sdk.Do[struct{}](ctx, h.provider, requests.Logout{})
	require.NoError(t, err)
	require.NoError(t, h.session.Logout(ctx))

	assert.Equal(t, "", h.session.Token())
}

func serverCode(err error) (sdk.FlatErrorCode, bool) {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	return apiErr.ServerCode()
}
