package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/poll"
	"github.com/trezcool/council/core/profile"
	livesvc "github.com/trezcool/council/services/live"
)

func Test_liveApi(t *testing.T) {
	app := setup(t)
	adminAcc, _ := app.member(t, "Anna", "anna@test.de", profile.RoleAdmin)
	studentAcc, _ := app.member(t, "Ben", "ben@test.de", profile.RoleStudent)

	srv := httptest.NewServer(app)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"

	t.Run("no token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url+"?token=nope", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("receives invalidations", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+app.token(t, studentAcc), nil)
		require.NoError(t, err)
		defer conn.Close()
		require.Eventually(t, func() bool { return app.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

		app.do(t, httpTest{
			method: http.MethodPost, path: "/api/polls", token: app.token(t, adminAcc),
			body: marchallObj(t, poll.NewPoll{Question: "Pizza?", Options: []string{"yes", "no"}}), wantCode: http.StatusCreated,
		})

		var evt livesvc.Event
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, core.TopicPolls, evt.Topic)
	})
}
