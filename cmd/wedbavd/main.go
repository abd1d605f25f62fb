// Copyright 2025-2026 YieldRay
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command wedbavd serves a WebDAV filesystem stored in a single relational
// table.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	appctxmw "github.com/YieldRay/wedbav/internal/http/interceptors/appctx"
	"github.com/YieldRay/wedbav/internal/http/interceptors/auth"
	logmw "github.com/YieldRay/wedbav/internal/http/interceptors/log"
	"github.com/YieldRay/wedbav/internal/http/services/webdav"
	"github.com/YieldRay/wedbav/pkg/config"
	"github.com/YieldRay/wedbav/pkg/storage/fs/sqlfs"
)

var configFlag = flag.String("c", "wedbav.toml", "set configuration file")

func init() {
	chi.RegisterMethod(webdav.MethodPropfind)
	chi.RegisterMethod(webdav.MethodProppatch)
	chi.RegisterMethod(webdav.MethodMkcol)
	chi.RegisterMethod(webdav.MethodCopy)
	chi.RegisterMethod(webdav.MethodMove)
	chi.RegisterMethod(webdav.MethodLock)
	chi.RegisterMethod(webdav.MethodUnlock)
}

func main() {
	flag.Parse()

	conf, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(&conf.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}

	fs, err := sqlfs.New(&sqlfs.Options{
		Driver: conf.DB.Driver,
		DSN:    conf.DB.DSN,
		Table:  conf.DB.Table,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error opening filesystem")
	}

	dav, err := webdav.NewWithConfig(&webdav.Config{Browser: conf.Webdav.Browser}, fs)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating webdav service")
	}

	// read-only browser traffic stays open when a browser mode is on
	var skip auth.SkipFunc
	if conf.Webdav.Browser != webdav.BrowserDisabled {
		skip = func(r *http.Request) bool {
			return (r.Method == http.MethodGet || r.Method == http.MethodHead) &&
				webdav.IsBrowserRequest(r)
		}
	}
	gate := auth.New(&auth.Options{
		Username: conf.Webdav.Username,
		Password: conf.Webdav.Password,
		Realm:    conf.Webdav.Realm,
	}, skip)

	r := chi.NewRouter()
	r.Use(appctxmw.New(*log))
	r.Use(logmw.New())
	r.Use(gate)
	r.Handle("/*", dav)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Int("port", conf.Port).Str("driver", conf.DB.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("error running server")
		}
	}()

	<-done
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down server")
	}
	if err := fs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error closing filesystem")
	}
}

func newLogger(conf *config.LogConfig) (*zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil {
		return nil, err
	}
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	if conf.Mode == "" || conf.Mode == "console" {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return &zl, nil
}
