// Package sdk is the request layer of the Flat client. It sends typed requests
// to the Flat server, the Agora RTM REST API and the Netless conversion API,
// unwraps their responses and keeps the signed in user's session.
//
// # Requests
//
// A request names its backend by embedding Flat, Agora or Netless and its
// result type by embedding Returns[T]:
//
//	type JoinRoom struct {
//	    sdk.Flat
//	    sdk.Returns[RoomPlayInfo]
//	    UUID string
//	}
//
//	func (JoinRoom) Path() string      { return "/v1/room/join" }
//	func (r JoinRoom) Task() sdk.Task  { return sdk.JSONTask(map[string]string{"uuid": r.UUID}) }
//
// Ready made requests live in the requests subpackage.
//
// # Sending
//
// Create a Provider from a Config and a SessionStore, then use Do or Go:
//
//	session := sdk.NewSessionStore(storage)
//	provider, err := sdk.NewProvider(sdk.NewConfigFromEnv(), session)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	play, err := sdk.Do[RoomPlayInfo](ctx, provider, JoinRoom{UUID: id})
//
// Go runs the request in the background and delivers the result on the
// configured MainExecutor.
//
// # Responses
//
// Flat answers with an envelope {"status": 0, "data": ...}. A non zero status
// is returned as an ErrorTypeServer error carrying the raw body, and
// ServerCode recovers the business code. Code 100006 means the JWT expired:
// the request fails with ErrSessionExpired and the session is logged out once
// on the MainExecutor, however many requests observed the expiry. Netless
// bodies are decoded as they are.
//
// # Paging
//
// PageList merges pages of PageSize items. Page 1 replaces the list, the page
// after the current one appends to it and anything else is dropped.
//
//	rooms := sdk.NewPageList(requests.RoomListFetcher(provider), func(items []requests.RoomInfo, more bool) {
//	    render(items, more)
//	})
//	_ = rooms.Refresh(ctx)
//	_ = rooms.LoadMore(ctx)
//
// # Errors
//
// Every failure is an *Error. Use errors.As to inspect it, or the helpers:
//
//	if sdk.IsSessionExpired(err) {
//	    // show the login screen
//	}
//	if sdk.IsNetworkError(err) {
//	    // offline
//	}
package sdk
