package requests

import (
	"github.com/birbparty/flat-client/sdk"
)

// AccountType selects the credential a password login uses.
type AccountType int

const (
	AccountPhone AccountType = iota
	AccountEmail
)

// PasswordLogin signs in with a phone number or an email address.
type PasswordLogin struct {
	sdk.Flat
	sdk.Returns[sdk.User]

	Type     AccountType
	Account  string
	Password string
}

// PhoneLogin builds a phone password login
func PhoneLogin(phone, password string) PasswordLogin {
	return PasswordLogin{Type: AccountPhone, Account: phone, Password: password}
}

// EmailLogin builds an email password login
func EmailLogin(email, password string) PasswordLogin {
	return PasswordLogin{Type: AccountEmail, Account: email, Password: password}
}

// Path implements sdk.Request
func (r PasswordLogin) Path() string {
	if r.Type == AccountEmail {
		return "/v2/login/email"
	}
	return "/v2/login/phone"
}

// Task implements sdk.Request
func (r PasswordLogin) Task() sdk.Task {
	field := "phone"
	if r.Type == AccountEmail {
		field = "email"
	}
	return sdk.JSONTask(map[string]string{field: r.Account, "password": r.Password})
}

// Logout revokes the current token on the server. The local session is
// cleared separately with SessionStore.Logout.
type Logout struct {
	sdk.Flat
	sdk.Returns[struct{}]
}

// Path implements sdk.Request
func (Logout) Path() string { return "/v1/logout" }

// Task implements sdk.Request
func (Logout) Task() sdk.Task { return sdk.PlainTask() }
