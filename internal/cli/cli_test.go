package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/otherday/internal/adapters/cache"
	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/config"
	"github.com/okian/otherday/pkg/logger"
)

const seedYAML = `questions:
  - date: "2026-10-19"
    question: "  Best pizza topping?  "
  - id: fixed-id
    date: "2026-10-20"
    question: "Worst chore?"
`

func TestRootCmd(t *testing.T) {
	Convey("Given the root command", t, func() {
		cmd := NewRootCmd()

		Convey("Then it carries the serve and seed subcommands", func() {
			names := make([]string, 0)
			for _, c := range cmd.Commands() {
				names = append(names, c.Name())
			}
			So(names, ShouldContain, "serve")
			So(names, ShouldContain, "seed")
			So(cmd.PersistentFlags().Lookup("config"), ShouldNotBeNil)
		})

		Convey("When an unknown subcommand is given", func() {
			cmd.SetArgs([]string{"nope"})
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			Convey("Then it fails", func() {
				So(cmd.Execute(), ShouldNotBeNil)
			})
		})
	})
}

func TestSeedQuestions(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty memory store", t, func() {
		store := repository.NewMemoryStore()

		Convey("When seeding a valid file", func() {
			n, err := seedQuestions(ctx, store, strings.NewReader(seedYAML))

			Convey("Then every question is stored by date", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				q, err := store.QuestionByDate(ctx, "2026-10-19")
				So(err, ShouldBeNil)
				So(q.Text, ShouldEqual, "Best pizza topping?")
				So(q.ID, ShouldNotBeEmpty)

				fixed, err := store.QuestionByDate(ctx, "2026-10-20")
				So(err, ShouldBeNil)
				So(fixed.ID, ShouldEqual, "fixed-id")
			})

			Convey("And an id cannot move to another date", func() {
				moved := "questions:\n  - date: \"2026-10-23\"\n    question: fresh\n  - id: fixed-id\n    date: \"2026-10-21\"\n    question: moved\n"
				_, err := seedQuestions(ctx, store, strings.NewReader(moved))
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "already belongs to 2026-10-20")

				_, err = store.QuestionByDate(ctx, "2026-10-23")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				kept, err := store.QuestionByID(ctx, "fixed-id")
				So(err, ShouldBeNil)
				So(kept.Text, ShouldEqual, "Worst chore?")
			})

			Convey("And seeding again keeps the ids", func() {
				before, _ := store.QuestionByDate(ctx, "2026-10-19")
				_, err := seedQuestions(ctx, store, strings.NewReader(seedYAML))
				So(err, ShouldBeNil)
				after, _ := store.QuestionByDate(ctx, "2026-10-19")
				So(after.ID, ShouldEqual, before.ID)
			})
		})

		Convey("When the file is invalid", func() {
			cases := []string{
				"questions: [",
				"questions:\n  - date: \"19/10/2026\"\n    question: x\n",
				"questions:\n  - date: \"2026-10-19\"\n    question: \"  \"\n",
				"questions:\n  - date: \"2026-10-19\"\n    question: a\n  - date: \"2026-10-19\"\n    question: b\n",
				"questions:\n  - id: same\n    date: \"2026-10-19\"\n    question: a\n  - id: same\n    date: \"2026-10-22\"\n    question: b\n",
			}

			Convey("Then nothing is written", func() {
				for _, c := range cases {
					_, err := seedQuestions(ctx, store, strings.NewReader(c))
					So(err, ShouldNotBeNil)
				}
				_, err := store.QuestionByDate(ctx, "2026-10-19")
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestSeedCmd(t *testing.T) {
	Convey("Given a seed file and no database configured", t, func() {
		path := filepath.Join(t.TempDir(), "questions.yaml")
		So(os.WriteFile(path, []byte(seedYAML), 0o600), ShouldBeNil)
		t.Setenv("OTHERDAY_MONGO_URI", "")
		t.Setenv("OTHERDAY_REDIS_ADDR", "")

		Convey("When running seed", func() {
			var out bytes.Buffer
			cmd := NewRootCmd()
			cmd.SetArgs([]string{"seed", "--file", path})
			cmd.SetOut(&out)
			cmd.SetErr(io.Discard)
			err := cmd.Execute()

			Convey("Then the questions are reported as seeded", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldEqual, "seeded 2 questions\n")
			})
		})

		Convey("When the file does not exist", func() {
			cmd := NewRootCmd()
			cmd.SetArgs([]string{"seed", "--file", filepath.Join(t.TempDir(), "missing.yaml")})
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			Convey("Then it fails", func() {
				So(cmd.Execute(), ShouldNotBeNil)
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	log := logger.Nop()

	Convey("Given the default configuration", t, func() {
		cfg := config.New()

		Convey("When no backends are configured", func() {
			store, err := openStore(ctx, cfg, log)

			Convey("Then the memory store is used", func() {
				So(err, ShouldBeNil)
				_, ok := store.(*repository.MemoryStore)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When redis is configured", func() {
			mr := miniredis.RunT(t)
			cfg.RedisAddr = mr.Addr()
			store, err := openStore(ctx, cfg, log)

			Convey("Then the question cache wraps the store", func() {
				So(err, ShouldBeNil)
				_, ok := store.(*cache.QuestionCache)
				So(ok, ShouldBeTrue)
				So(store.Ping(ctx), ShouldBeNil)
				So(store.Close(ctx), ShouldBeNil)
			})
		})

		Convey("When mongo is unreachable", func() {
			cfg.MongoURI = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200"
			cfg.MongoTimeoutMS = 500
			_, err := openStore(ctx, cfg, log)

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestServe(t *testing.T) {
	Convey("Given an in-memory configuration on a free port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.LogLevel = "error"
		cfg.MetricsPrefix = "cli"

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ready := make(chan string, 1)
		done := make(chan error, 1)
		go func() { done <- serve(ctx, cfg, io.Discard, ready) }()

		var addr string
		select {
		case addr = <-ready:
		case err := <-done:
			t.Fatalf("serve exited early: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not start")
		}

		Convey("When calling the API", func() {
			health, err := http.Get("http://" + addr + "/healthz")
			So(err, ShouldBeNil)
			_ = health.Body.Close()
			docs, err := http.Get("http://" + addr + "/openapi.yaml")
			So(err, ShouldBeNil)
			_ = docs.Body.Close()
			scrape, err := http.Get("http://" + addr + "/metrics")
			So(err, ShouldBeNil)
			body, err := io.ReadAll(scrape.Body)
			_ = scrape.Body.Close()
			So(err, ShouldBeNil)

			Convey("Then the routes answer and shutdown is clean", func() {
				So(health.StatusCode, ShouldEqual, http.StatusOK)
				So(docs.StatusCode, ShouldEqual, http.StatusOK)
				So(string(body), ShouldContainSubstring, "otherday_trivia_cli_http_requests_total")

				cancel()
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})
	})
}

func TestServe_RedisDown(t *testing.T) {
	Convey("Given a redis cache whose server is gone", t, func() {
		mr := miniredis.RunT(t)
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.LogLevel = "error"
		cfg.RedisAddr = mr.Addr()
		mr.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ready := make(chan string, 1)
		done := make(chan error, 1)
		go func() { done <- serve(ctx, cfg, io.Discard, ready) }()

		Convey("Then the server still starts and reports healthy", func() {
			var addr string
			select {
			case addr = <-ready:
			case err := <-done:
				t.Fatalf("serve exited early: %v", err)
			case <-time.After(5 * time.Second):
				t.Fatal("server did not start")
			}

			health, err := http.Get("http://" + addr + "/healthz")
			So(err, ShouldBeNil)
			_ = health.Body.Close()
			So(health.StatusCode, ShouldEqual, http.StatusOK)

			cancel()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	})
}
