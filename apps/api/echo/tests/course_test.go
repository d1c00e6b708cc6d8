package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	testutil "github.com/trezcool/darasa/tests"
)

func titles(t *testing.T, items []map[string]interface{}) []string {
	res := make([]string, 0, len(items))
	for _, it := range items {
		res = append(res, it["title"].(string))
	}
	return res
}

func Test_courseApi_catalogue(t *testing.T) {
	e := setup(t)
	baraka := testutil.CreateUser(t, e.usrRepo, "Baraka Otieno", "baraka@darasa.test", "", core.RoleInstructor, true)
	zawadi := testutil.CreateUser(t, e.usrRepo, "Zawadi Mwangi", "zawadi@darasa.test", "", core.RoleInstructor, true)

	goCourse := testutil.CreateCourse(t, e.crsRepo, baraka.ID, "Go Fundamentals", 50, true, 2, 1)
	testutil.CreateCourse(t, e.crsRepo, zawadi.ID, "SQL for Analysts", 20, true, 1)
	draft := testutil.CreateCourse(t, e.crsRepo, baraka.ID, "Advanced Go", 80, false, 1)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "published only, newest first", path: "/v1/courses", want: []string{"SQL for Analysts", "Go Fundamentals"}},
		{name: "search", path: "/v1/courses?search=GO", want: []string{"Go Fundamentals"}},
		{name: "search (unknown)", path: "/v1/courses?search=rust", want: []string{}},
		{name: "by instructor", path: "/v1/courses?instructor_id=" + zawadi.ID, want: []string{"SQL for Analysts"}},
		{name: "ordering", path: "/v1/courses?ordering=-price", want: []string{"Go Fundamentals", "SQL for Analysts"}},
		{name: "unknown ordering is ignored", path: "/v1/courses?ordering=password", want: []string{"SQL for Analysts", "Go Fundamentals"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, titles(t, decodeList(t, rec)))
		})
	}

	t.Run("course outline", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/courses/"+goCourse.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, "Go Fundamentals", data["title"])

		sections := data["sections"].([]interface{})
		require.Len(t, sections, 2)
		lessons := sections[0].(map[string]interface{})["lessons"].([]interface{})
		require.Len(t, lessons, 2)
		lesson := lessons[0].(map[string]interface{})
		assert.Equal(t, "Lesson 1.1", lesson["title"])
		assert.Nil(t, lesson["content"])
	})

	runHTTPTests(t, e.app, []httpTest{
		{
			name: "unpublished course is hidden", path: "/v1/courses/" + draft.ID,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"}),
		},
		{name: "unknown course", path: "/v1/courses/unknown", wantCode: http.StatusNotFound},
	})
}

func Test_courseApi_authoring(t *testing.T) {
	e := setup(t)
	baraka := testutil.CreateUser(t, e.usrRepo, "Baraka Otieno", "baraka@darasa.test", "", core.RoleInstructor, true)
	zawadi := testutil.CreateUser(t, e.usrRepo, "Zawadi Mwangi", "zawadi@darasa.test", "", core.RoleInstructor, true)
	amani := testutil.CreateUser(t, e.usrRepo, "Amani Njeri", "amani@darasa.test", "", core.RoleLearner, true)
	admin := testutil.CreateUser(t, e.usrRepo, "Admin", "admin@darasa.test", "", core.RoleAdmin, true)
	barakaToken := getToken(t, e.conf, baraka)

	newCourse := []byte(`{
		"title": " Go Fundamentals ",
		"description": "Learn Go",
		"price": 49.999,
		"duration": "3h",
		"sections": [
			{"title": "Basics", "lessons": [{"title": "Hello"}, {"title": ""}, {"title": "Types", "content": "int, string"}]},
			{"title": "", "lessons": [{"title": "Orphan"}]}
		]
	}`)

	runHTTPTests(t, e.app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/instructor/courses", wantCode: http.StatusUnauthorized},
		{
			name: "instructor required", method: http.MethodPost, path: "/v1/instructor/courses", body: newCourse,
			token: getToken(t, e.conf, amani), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid course", method: http.MethodPost, path: "/v1/instructor/courses", token: barakaToken,
			body: []byte(`{"title": "", "description": "", "price": -1}`), wantCode: http.StatusBadRequest,
		},
	})

	rec := e.do(http.MethodPost, "/v1/instructor/courses", barakaToken, newCourse)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	courseID := created["id"].(string)
	assert.Equal(t, "Go Fundamentals", created["title"])
	assert.Equal(t, 50.0, created["price"])
	assert.Equal(t, false, created["is_published"])
	assert.Equal(t, baraka.ID, created["instructor_id"])

	sections := created["sections"].([]interface{})
	require.Len(t, sections, 1)
	assert.Len(t, sections[0].(map[string]interface{})["lessons"], 2)

	t.Run("not in the catalogue until published", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/courses/"+courseID, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("own courses", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/instructor/courses", barakaToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Go Fundamentals"}, titles(t, decodeList(t, rec)))

		rec = e.do(http.MethodGet, "/v1/instructor/courses", getToken(t, e.conf, zawadi))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})

	update := []byte(`{"title": "Go Basics", "price": 30}`)
	runHTTPTests(t, e.app, []httpTest{
		{
			name: "only the owner can update", method: http.MethodPut, path: "/v1/instructor/courses/" + courseID, body: update,
			token: getToken(t, e.conf, zawadi), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "you can only manage your own courses"}),
		},
		{
			name: "blank title", method: http.MethodPut, path: "/v1/instructor/courses/" + courseID,
			body: []byte(`{"title": "  "}`), token: barakaToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown course", method: http.MethodPut, path: "/v1/instructor/courses/unknown", body: update,
			token: barakaToken, wantCode: http.StatusNotFound,
		},
	})

	for name, token := range map[string]string{"owner": barakaToken, "admin": getToken(t, e.conf, admin)} {
		t.Run("updated by "+name, func(t *testing.T) {
			rec := e.do(http.MethodPut, "/v1/instructor/courses/"+courseID, token, update)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			data := decode(t, rec)
			assert.Equal(t, "Go Basics", data["title"])
			assert.Equal(t, 30.0, data["price"])
			assert.Equal(t, "Learn Go", data["description"])
		})
	}
}
