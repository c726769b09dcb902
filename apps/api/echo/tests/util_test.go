package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/council/apps/api/echo"
	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/account"
	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/announcement"
	"github.com/trezcool/council/core/bluten"
	"github.com/trezcool/council/core/event"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/poll"
	"github.com/trezcool/council/core/profile"
	cachesvc "github.com/trezcool/council/services/cache"
	emailsvc "github.com/trezcool/council/services/email"
	livesvc "github.com/trezcool/council/services/live"
	storagesvc "github.com/trezcool/council/services/storage"
	"github.com/trezcool/council/storage/database"
	"github.com/trezcool/council/storage/database/inmem"
	"github.com/trezcool/council/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testApp is a server wired to fresh in-memory stores.
type testApp struct {
	Server
	conf    *core.Config
	logger  *testutil.LoggerMock
	mailSvc *emailsvc.ConsoleServiceMock
	repos   database.Repositories
	hub     *livesvc.Hub

	accountSvc      account.Service
	profileSvc      profile.Service
	announcementSvc announcement.Service
	pollSvc         poll.Service
	ideaSvc         idea.Service
	eventSvc        event.Service
	blutenSvc       bluten.Service
	actionLogSvc    actionlog.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Storage.Dir = t.TempDir()
	logger := testutil.NewLoggerMock()

	// set up repos & services
	a := &testApp{
		conf:    conf,
		logger:  logger,
		mailSvc: emailsvc.NewConsoleServiceMock(logger, conf),
		repos:   inmem.NewRepositories(inmem.Open()),
		hub:     livesvc.NewHub(logger),
	}
	a.profileSvc = profile.NewService(a.repos.Profiles)
	a.accountSvc = account.NewService(a.repos.Accounts, a.profileSvc, a.mailSvc, logger, conf)
	a.announcementSvc = announcement.NewService(a.repos.Announcements)
	a.pollSvc = poll.NewService(a.repos.Polls)
	a.ideaSvc = idea.NewService(a.repos.Ideas)
	a.eventSvc = event.NewService(a.repos.Events, a.accountSvc, a.profileSvc, a.mailSvc, logger)
	a.blutenSvc = bluten.NewService(a.repos.Bluten)
	a.actionLogSvc = actionlog.NewService(a.repos.ActionLogs, logger)

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)

	// set up server
	a.Server = NewServer(
		ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			AccountSvc:      a.accountSvc,
			ProfileSvc:      a.profileSvc,
			AnnouncementSvc: a.announcementSvc,
			PollSvc:         a.pollSvc,
			IdeaSvc:         a.ideaSvc,
			EventSvc:        a.eventSvc,
			BlutenSvc:       a.blutenSvc,
			ActionLogSvc:    a.actionLogSvc,
			Cache:           cachesvc.NewMemoryCache(),
			Live:            a.hub,
			Files:           storagesvc.NewLocalStore(conf),
		},
	)
	t.Cleanup(func() {
		a.accountSvc.Wait()
		a.hub.Close()
		_ = a.Close()
	})
	return a
}

// member creates an active account and its profile.
func (a *testApp) member(t *testing.T, name, email, role string) (account.Account, profile.Profile) {
	t.Helper()
	return testutil.CreateMember(t, a.repos.Accounts, a.repos.Profiles, name, email, "", role)
}

func (a *testApp) token(t *testing.T, acc account.Account) string {
	t.Helper()
	return getToken(t, a.conf, acc)
}

// do serves tt and checks the response code, and the payload when tt.wantData is set.
func (a *testApp) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	a.ServeHTTP(rec, req)
	if tt.wantData != nil {
		checkCodeAndData(t, tt, rec)
	} else {
		assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	}
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, acc account.Account) string {
	claims := GetAccountClaims(acc, conf)
	token, err := GenerateToken(claims, conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

var bg = context.Background()
