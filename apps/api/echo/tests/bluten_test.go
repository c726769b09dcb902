package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/bluten"
	"github.com/trezcool/council/core/profile"
)

func Test_blutenApi_createPost(t *testing.T) {
	app := setup(t)
	studentAcc, _ := app.member(t, "Ben", "ben@test.de", profile.RoleStudent)
	token := app.token(t, studentAcc)

	tests := []httpTest{
		{
			name: "no token", body: marchallObj(t, bluten.NewPost{Recipient: "Carla", Message: "Thanks!"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "blank message", body: marchallObj(t, bluten.NewPost{Recipient: "Carla", Message: "   "}),
			token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "success", body: marchallObj(t, bluten.NewPost{Recipient: " Carla ", Message: "Thanks for the trip!"}),
			token: token, wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/bluten"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt)
			if tt.wantCode == http.StatusCreated {
				var p bluten.Post
				unmarshal(t, rec, &p)
				assert.Equal(t, "Carla", p.Recipient)
				assert.False(t, p.IsPublished)
			}
		})
	}
}

func Test_blutenApi_moderation(t *testing.T) {
	app := setup(t)
	adminAcc, admin := app.member(t, "Anna", "anna@test.de", profile.RoleAdmin)
	studentAcc, student := app.member(t, "Ben", "ben@test.de", profile.RoleStudent)
	adminToken, studentToken := app.token(t, adminAcc), app.token(t, studentAcc)

	p, err := app.blutenSvc.Create(bg, student, bluten.NewPost{Recipient: "Carla", Message: "Thanks!"})
	require.NoError(t, err)

	published := func(t *testing.T) []bluten.Post {
		rec := app.do(t, httpTest{path: "/api/bluten", token: studentToken, wantCode: http.StatusOK})
		var posts []bluten.Post
		unmarshal(t, rec, &posts)
		return posts
	}
	setPublished := func(v bool) []byte { return marchallObj(t, bluten.SetPublished{IsPublished: &v}) }

	t.Run("unpublished posts are hidden", func(t *testing.T) {
		assert.Empty(t, published(t))
	})

	t.Run("admin list", func(t *testing.T) {
		app.do(t, httpTest{path: "/api/admin/bluten", token: studentToken, wantCode: http.StatusForbidden})

		rec := app.do(t, httpTest{path: "/api/admin/bluten", token: adminToken, wantCode: http.StatusOK})
		var posts []bluten.Post
		unmarshal(t, rec, &posts)
		require.Len(t, posts, 1)
		assert.Equal(t, p.ID, posts[0].ID)
	})

	t.Run("publish", func(t *testing.T) {
		app.do(t, httpTest{
			method: http.MethodPatch, path: "/api/admin/bluten/" + p.ID, token: adminToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"is_published": "this field is required"}),
		})
		app.do(t, httpTest{
			method: http.MethodPatch, path: "/api/admin/bluten/" + p.ID, token: adminToken,
			body: setPublished(true), wantCode: http.StatusOK,
		})

		// the cached empty list was dropped
		posts := published(t)
		require.Len(t, posts, 1)
		assert.True(t, posts[0].IsPublished)
	})

	t.Run("unpublish", func(t *testing.T) {
		app.do(t, httpTest{
			method: http.MethodPatch, path: "/api/admin/bluten/" + p.ID, token: adminToken,
			body: setPublished(false), wantCode: http.StatusOK,
		})
		assert.Empty(t, published(t))
	})

	t.Run("delete", func(t *testing.T) {
		app.do(t, httpTest{method: http.MethodDelete, path: "/api/admin/bluten/" + p.ID, token: adminToken, wantCode: http.StatusNoContent})
		app.do(t, httpTest{
			method: http.MethodDelete, path: "/api/admin/bluten/" + p.ID, token: adminToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: bluten.ErrNotFound.Error()}),
		})
	})

	t.Run("actions are logged", func(t *testing.T) {
		entries, err := app.actionLogSvc.Query(bg, actionlog.QueryFilter{ActorID: admin.ID, TargetType: "bluten_post"})
		require.NoError(t, err)
		actions := make([]string, 0, len(entries))
		for _, e := range entries {
			actions = append(actions, e.Action)
		}
		// newest first
		assert.Equal(t, []string{actionlog.ActionDelete, actionlog.ActionUnpublish, actionlog.ActionPublish}, actions)
	})
}
