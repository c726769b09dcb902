package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/council/apps/api/echo"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/profile"
	"github.com/trezcool/council/tests"
)

const strongPwd = "Sch00l!Council#42"

func Test_accountApi_signUp(t *testing.T) {
	app := setup(t)
	testutil.CreateAccount(t, app.repos.Accounts, "taken@test.de", strongPwd, true)

	signUp := func(name, email, pwd, confirm string) []byte {
		return marchallObj(t, account.SignUp{Name: name, Email: email, Password: pwd, PasswordConfirm: confirm})
	}

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "invalid email", body: signUp("Lena", "lena", strongPwd, strongPwd), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "password mismatch", body: signUp("Lena", "lena@test.de", strongPwd, strongPwd+"x"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "password too short", body: signUp("Lena", "lena@test.de", "Ab1!", "Ab1!"), wantCode: http.StatusBadRequest,
		},
		{
			name: "password all numeric", body: signUp("Lena", "lena@test.de", "1234567890", "1234567890"), wantCode: http.StatusBadRequest,
		},
		{
			name: "email taken", body: signUp("Lena", "TAKEN@test.de ", strongPwd, strongPwd), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": account.ErrEmailExists.Error()}),
		},
		{name: "success", body: signUp("Lena", "Lena@Test.de", strongPwd, strongPwd), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/signup"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt)
			if tt.wantCode == http.StatusCreated {
				var acc account.Account
				unmarshal(t, rec, &acc)
				assert.Equal(t, "lena@test.de", acc.Email)
				assert.True(t, acc.IsActive)
				assert.NotContains(t, rec.Body.String(), "password")
			}
		})
	}
}

// The profile is provisioned after sign up; until then GET /api/profile answers 404.
func Test_accountApi_signUpProvisionsProfile(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/auth/signup", marchallObj(t, account.SignUp{
		Name: "Jonas", Email: "jonas@test.de", Password: strongPwd, PasswordConfirm: strongPwd,
	}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var acc account.Account
	unmarshal(t, rec, &acc)
	token := app.token(t, acc)

	app.accountSvc.Wait()

	rec = app.do(t, httpTest{path: "/api/profile", token: token, wantCode: http.StatusOK})
	var prof profile.Profile
	unmarshal(t, rec, &prof)
	assert.Equal(t, acc.ID, prof.ID)
	assert.Equal(t, "Jonas", prof.Name)
	assert.Equal(t, profile.RoleStudent, prof.Role)
}

func Test_accountApi_login(t *testing.T) {
	app := setup(t)
	acc := testutil.CreateAccount(t, app.repos.Accounts, "mia@test.de", strongPwd, true)
	testutil.CreateAccount(t, app.repos.Accounts, "gone@test.de", strongPwd, false)

	login := func(email, pwd string) []byte {
		return marchallObj(t, account.Login{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: login("nobody@test.de", strongPwd), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "wrong password", body: login("mia@test.de", "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "deactivated", body: login("gone@test.de", strongPwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "success", body: login(" MIA@test.de", strongPwd), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt)
			if tt.wantCode == http.StatusOK {
				var session account.Session
				unmarshal(t, rec, &session)
				assert.Equal(t, "bearer", session.TokenType)
				assert.Equal(t, acc.ID, session.Subject)
				assert.Equal(t, acc.Email, session.Email)
				assert.NotEmpty(t, session.AccessToken)
				assert.True(t, session.ExpiresAt.After(time.Now()))

				// the token authenticates the caller
				req, rec := newAuthRequest(http.MethodPost, "/api/auth/refresh", session.AccessToken)
				app.ServeHTTP(rec, req)
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			}
		})
	}
}

func Test_accountApi_refresh(t *testing.T) {
	app := setup(t)
	acc := testutil.CreateAccount(t, app.repos.Accounts, "mia@test.de", strongPwd, true)
	gone := testutil.CreateAccount(t, app.repos.Accounts, "gone@test.de", strongPwd, false)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid token", token: "not.a.token", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "deactivated", token: app.token(t, gone), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "success", token: app.token(t, acc), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/refresh"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt)
			if tt.wantCode == http.StatusOK {
				var session account.Session
				unmarshal(t, rec, &session)
				assert.Equal(t, acc.ID, session.Subject)
			}
		})
	}

	t.Run("refresh expired", func(t *testing.T) {
		origIat := time.Now().Add(-app.conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()
		token, err := GenerateToken(GetAccountClaims(acc, app.conf, origIat), app.conf)
		require.NoError(t, err)

		app.do(t, httpTest{
			method: http.MethodPost, path: "/api/auth/refresh", token: token, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		})
	})
}

func Test_accountApi_passwordReset(t *testing.T) {
	app := setup(t)
	acc := testutil.CreateAccount(t, app.repos.Accounts, "mia@test.de", strongPwd, true)

	tests := []httpTest{
		{
			name: "invalid email", body: []byte(`{"email": "mia"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{name: "unknown email: no leak", body: []byte(`{"email": "nobody@test.de"}`), wantCode: http.StatusOK, extra: 0},
		{name: "known email", body: []byte(`{"email": "MIA@test.de"}`), wantCode: http.StatusOK, extra: 1},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			app.mailSvc.Reset()
			app.do(t, tt)
			if want, ok := tt.extra.(int); ok {
				sent := app.mailSvc.SentMessages()
				require.Len(t, sent, want)
				if want > 0 {
					assert.Equal(t, acc.Email, sent[0].To[0].Address)
					assert.Equal(t, "password_reset", sent[0].TemplateName)
				}
			}
		})
	}
}

func Test_accountApi_passwordResetConfirm(t *testing.T) {
	app := setup(t)
	acc := testutil.CreateAccount(t, app.repos.Accounts, "mia@test.de", strongPwd, true)

	require.NoError(t, app.accountSvc.RequestPasswordReset(bg, acc.Email))
	sent := app.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	data := sent[0].TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)

	newPwd := "N3w&Better!Pass"
	confirm := func(uid, token, pwd string) []byte {
		return marchallObj(t, account.ResetPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd})
	}

	tests := []httpTest{
		{name: "bad uid", body: confirm("lol", token, newPwd), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid token"})},
		{name: "bad token", body: confirm(uid, "lol-lol", newPwd), wantCode: http.StatusBadRequest},
		{name: "weak password", body: confirm(uid, token, "12345678"), wantCode: http.StatusBadRequest},
		{name: "success", body: confirm(uid, token, newPwd), wantCode: http.StatusOK},
		// the token is bound to the previous password hash
		{name: "token used", body: confirm(uid, token, newPwd), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}

	_, err := app.accountSvc.Authenticate(bg, strings.ToUpper(acc.Email), newPwd)
	assert.NoError(t, err)
}
