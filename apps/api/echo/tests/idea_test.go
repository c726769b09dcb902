package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/council/core/actionlog"
	"github.com/trezcool/council/core/idea"
	"github.com/trezcool/council/core/profile"
)

func Test_ideaApi_createAndList(t *testing.T) {
	app := setup(t)
	studentAcc, student := app.member(t, "Ben", "ben@test.de", profile.RoleStudent)
	token := app.token(t, studentAcc)

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/ideas", wantCode: http.StatusUnauthorized},
		{
			name: "missing body", method: http.MethodPost, path: "/api/ideas", body: []byte(`{"title": "Longer breaks"}`),
			token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"body": "this field is required"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/api/ideas",
			body: []byte(`{"title": "Longer breaks", "body": "20 minutes please"}`), token: token, wantCode: http.StatusCreated,
		},
		{name: "unknown idea", path: "/api/ideas/lol", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "idea not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}

	rec := app.do(t, httpTest{path: "/api/ideas", token: token, wantCode: http.StatusOK})
	var ideas []idea.Idea
	unmarshal(t, rec, &ideas)
	require.Len(t, ideas, 1)
	assert.Equal(t, student.ID, ideas[0].AuthorID)
	assert.Equal(t, 0, ideas[0].LikeCount)
	assert.False(t, ideas[0].Liked)
}

func Test_ideaApi_likes(t *testing.T) {
	app := setup(t)
	aliceAcc, alice := app.member(t, "Alice", "alice@test.de", profile.RoleStudent)
	bobAcc, _ := app.member(t, "Bob", "bob@test.de", profile.RoleStudent)
	aliceToken, bobToken := app.token(t, aliceAcc), app.token(t, bobAcc)

	i, err := app.ideaSvc.Create(bg, alice, idea.NewIdea{Title: "Longer breaks", Body: "..."})
	require.NoError(t, err)
	path := "/api/ideas/" + i.ID + "/like"

	state := func(liked bool, count int) []byte {
		return marchallObj(t, idea.LikeState{Liked: liked, LikeCount: count})
	}
	tests := []httpTest{
		{name: "unknown idea", method: http.MethodPost, path: "/api/ideas/lol/like", token: aliceToken, wantCode: http.StatusNotFound},
		{name: "alice likes", method: http.MethodPost, path: path, token: aliceToken, wantCode: http.StatusOK, wantData: state(true, 1)},
		{name: "like is idempotent", method: http.MethodPost, path: path, token: aliceToken, wantCode: http.StatusOK, wantData: state(true, 1)},
		{name: "bob likes", method: http.MethodPost, path: path, token: bobToken, wantCode: http.StatusOK, wantData: state(true, 2)},
		{name: "alice unlikes", method: http.MethodDelete, path: path, token: aliceToken, wantCode: http.StatusOK, wantData: state(false, 1)},
		{name: "unlike is idempotent", method: http.MethodDelete, path: path, token: aliceToken, wantCode: http.StatusOK, wantData: state(false, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}

	rec := app.do(t, httpTest{path: "/api/ideas/" + i.ID, token: bobToken, wantCode: http.StatusOK})
	var got idea.Idea
	unmarshal(t, rec, &got)
	assert.True(t, got.Liked)
	assert.Equal(t, 1, got.LikeCount)
}

// Toggling a like twice brings the counter back to where it was.
func Test_ideaApi_likeToggleRoundTrip(t *testing.T) {
	app := setup(t)
	aliceAcc, alice := app.member(t, "Alice", "alice@test.de", profile.RoleStudent)
	_, bob := app.member(t, "Bob", "bob@test.de", profile.RoleStudent)

	i, err := app.ideaSvc.Create(bg, alice, idea.NewIdea{Title: "Longer breaks", Body: "..."})
	require.NoError(t, err)
	_, err = app.ideaSvc.Like(bg, bob, i.ID)
	require.NoError(t, err)

	path := "/api/ideas/" + i.ID + "/like"
	token := app.token(t, aliceAcc)
	app.do(t, httpTest{method: http.MethodPost, path: path, token: token, wantCode: http.StatusOK})
	app.do(t, httpTest{
		method: http.MethodDelete, path: path, token: token, wantCode: http.StatusOK,
		wantData: marchallObj(t, idea.LikeState{Liked: false, LikeCount: 1}),
	})
}

func Test_ideaApi_comments(t *testing.T) {
	app := setup(t)
	adminAcc, admin := app.member(t, "Anna", "anna@test.de", profile.RoleAdmin)
	aliceAcc, alice := app.member(t, "Alice", "alice@test.de", profile.RoleStudent)
	bobAcc, _ := app.member(t, "Bob", "bob@test.de", profile.RoleStudent)
	aliceToken, bobToken := app.token(t, aliceAcc), app.token(t, bobAcc)

	i, err := app.ideaSvc.Create(bg, alice, idea.NewIdea{Title: "Longer breaks", Body: "..."})
	require.NoError(t, err)
	other, err := app.ideaSvc.Create(bg, alice, idea.NewIdea{Title: "Vending machine", Body: "..."})
	require.NoError(t, err)
	foreign, err := app.ideaSvc.Comment(bg, alice, other.ID, idea.NewComment{Body: "elsewhere"})
	require.NoError(t, err)

	path := "/api/ideas/" + i.ID + "/comments"
	post := func(t *testing.T, token, body, parentID string) idea.Comment {
		rec := app.do(t, httpTest{
			method: http.MethodPost, path: path, token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, idea.NewComment{Body: body, ParentID: parentID}),
		})
		var c idea.Comment
		unmarshal(t, rec, &c)
		return c
	}

	root := post(t, aliceToken, "first", "")
	reply := post(t, bobToken, "agreed", root.ID)
	nested := post(t, aliceToken, "thanks", reply.ID)
	second := post(t, bobToken, "another topic", "")

	tests := []httpTest{
		{
			name: "parent of another idea", method: http.MethodPost, path: path, token: bobToken,
			body: marchallObj(t, idea.NewComment{Body: "x", ParentID: foreign.ID}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"parent_id": "parent comment does not belong to this idea"}),
		},
		{
			name: "unknown parent", method: http.MethodPost, path: path, token: bobToken,
			body: marchallObj(t, idea.NewComment{Body: "x", ParentID: "lol"}), wantCode: http.StatusBadRequest,
		},
		{name: "thread of unknown idea", path: "/api/ideas/lol/comments", token: bobToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}

	t.Run("thread", func(t *testing.T) {
		rec := app.do(t, httpTest{path: path, token: bobToken, wantCode: http.StatusOK})
		var thread []*idea.Comment
		unmarshal(t, rec, &thread)

		require.Len(t, thread, 2)
		assert.Equal(t, root.ID, thread[0].ID)
		assert.Equal(t, second.ID, thread[1].ID)
		require.Len(t, thread[0].Replies, 1)
		assert.Equal(t, reply.ID, thread[0].Replies[0].ID)
		require.Len(t, thread[0].Replies[0].Replies, 1)
		assert.Equal(t, nested.ID, thread[0].Replies[0].Replies[0].ID)
	})

	t.Run("only author or admin deletes", func(t *testing.T) {
		app.do(t, httpTest{
			method: http.MethodDelete, path: "/api/comments/" + root.ID, token: bobToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: idea.ErrForbidden.Error()}),
		})
	})

	t.Run("deleting a parent removes its subtree", func(t *testing.T) {
		app.do(t, httpTest{method: http.MethodDelete, path: "/api/comments/" + reply.ID, token: bobToken, wantCode: http.StatusNoContent})

		thread, err := app.ideaSvc.Thread(bg, i.ID)
		require.NoError(t, err)
		require.Len(t, thread, 2)
		assert.Empty(t, thread[0].Replies)
		app.do(t, httpTest{method: http.MethodDelete, path: "/api/comments/" + nested.ID, token: aliceToken, wantCode: http.StatusNotFound})
	})

	t.Run("admin moderation", func(t *testing.T) {
		adminToken := app.token(t, adminAcc)
		app.do(t, httpTest{method: http.MethodDelete, path: "/api/admin/comments/" + second.ID, token: adminToken, wantCode: http.StatusNoContent})
		app.do(t, httpTest{method: http.MethodDelete, path: "/api/admin/ideas/" + i.ID, token: bobToken, wantCode: http.StatusForbidden})
		app.do(t, httpTest{method: http.MethodDelete, path: "/api/admin/ideas/" + i.ID, token: adminToken, wantCode: http.StatusNoContent})
		app.do(t, httpTest{path: "/api/ideas/" + i.ID, token: bobToken, wantCode: http.StatusNotFound})

		entries, err := app.actionLogSvc.Query(bg, actionlog.QueryFilter{ActorID: admin.ID})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "idea", entries[0].TargetType)
		assert.Equal(t, "comment", entries[1].TargetType)
	})
}
