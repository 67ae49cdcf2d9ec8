package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a mux with the docs routes", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		convey.Convey("When fetching /openapi.yaml", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

			convey.Convey("Then the embedded document is served", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(w.Body.Bytes(), convey.ShouldResemble, OpenAPI)
			})
		})

		convey.Convey("When fetching /api-docs", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody))

			convey.Convey("Then the ReDoc page points at the document", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/openapi.yaml")
			})
		})
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		var doc struct {
			OpenAPI string                    `yaml:"openapi"`
			Paths   map[string]map[string]any `yaml:"paths"`
		}
		err := yaml.Unmarshal(OpenAPI, &doc)

		convey.Convey("Then it parses and documents every route", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(doc.OpenAPI, convey.ShouldStartWith, "3.")
			for _, route := range []struct{ path, method string }{
				{"/user/register", "post"},
				{"/user/login", "post"},
				{"/refresh-session", "post"},
				{"/user/username/{username}", "get"},
				{"/user/{id}", "get"},
				{"/user/{id}/top-answers", "get"},
				{"/user/{id}/ranking", "get"},
				{"/leaderboard", "get"},
				{"/today/get-question/", "get"},
				{"/yesterday/get-question/", "get"},
				{"/day-before-yesterday/get-question/", "get"},
				{"/answer", "post"},
				{"/answer/{id}/increment-vote", "post"},
				{"/question/{id}/get_pair", "get"},
				{"/question/{id}/answer_leaderboard", "get"},
				{"/groups/create-group", "post"},
				{"/groups/join-group", "post"},
				{"/groups/get-groups/{username}", "get"},
				{"/groups/leaderboard/{group_name}", "get"},
				{"/groups/{group_name}/answer-leaderboard/{question_id}", "get"},
				{"/stats", "get"},
				{"/healthz", "get"},
				{"/metrics", "get"},
			} {
				convey.So(doc.Paths, convey.ShouldContainKey, route.path)
				convey.So(doc.Paths[route.path], convey.ShouldContainKey, route.method)
			}
		})
	})
}

func TestSwaggerHandlerWithNilMux(t *testing.T) {
	convey.Convey("Given a nil mux", t, func() {
		convey.Convey("Then registering panics", func() {
			convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
		})
	})
}
