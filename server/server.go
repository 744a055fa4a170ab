// Package server exposes the Subsonic-compatible REST API and translates it
// onto the MPD backend.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"sonicgate/config"
	"sonicgate/core/audio"
	"sonicgate/core/library"
	"sonicgate/core/listenbrainz"
	"sonicgate/core/mpd"
	"sonicgate/logger"
	"sonicgate/model"
)

// backend is the slice of the MPD pool the handlers depend on.
type backend interface {
	Ping(ctx context.Context) error
	FindSong(ctx context.Context, path string) (mpd.Attrs, error)
	ListPlaylists(ctx context.Context) ([]mpd.Attrs, error)
	PlaylistSongs(ctx context.Context, name string) ([]mpd.Attrs, error)
	PlaylistSongsBatch(ctx context.Context, names []string) ([][]mpd.Attrs, error)
	ScanStatus(ctx context.Context) (stats, status mpd.Attrs, err error)
	StartScan(ctx context.Context) (stats, status mpd.Attrs, err error)
	StickerSet(ctx context.Context, uri, name, value string) error
	StickerDelete(ctx context.Context, uri, name string) error
	AlbumArtChunk(ctx context.Context, uri string, offset int) (*mpd.BinaryChunk, error)
}

// scrobbler reports plays and ratings to an external listen service.
type scrobbler interface {
	PlayingNow(ctx context.Context, song model.Song) error
	Listen(ctx context.Context, song model.Song, listenedAt int64) error
	Feedback(ctx context.Context, song model.Song, score listenbrainz.Score) error
}

// Server routes Subsonic API requests onto the backend services.
type Server struct {
	auth       *authenticator
	backend    backend
	library    library.Library
	scrobbler  scrobbler // nil disables scrobbling endpoints
	transcoder *audio.Transcoder
	router     *mux.Router
}

// New assembles the server and registers all API routes.
func New(auth *authenticator, b backend, lib library.Library, scrob scrobbler, tr *audio.Transcoder) *Server {
	s := &Server{
		auth:       auth,
		backend:    b,
		library:    lib,
		scrobbler:  scrob,
		transcoder: tr,
		router:     mux.NewRouter(),
	}

	s.router.Use(requestLogging, cors)

	api := s.router.PathPrefix("/rest").Subrouter()
	api.Use(s.requireAuth)

	s.route(api, "ping", s.handle(s.ping))
	s.route(api, "getLicense", s.handle(s.getLicense))
	s.route(api, "getMusicFolders", s.handle(s.getMusicFolders))
	s.route(api, "getPlaylists", s.handle(s.getPlaylists))
	s.route(api, "getPlaylist", s.handle(s.getPlaylist))
	s.route(api, "getUser", s.handle(s.getUser))
	s.route(api, "getAvatar", s.handle(s.getAvatar))
	s.route(api, "scrobble", s.handle(s.scrobble))
	s.route(api, "setRating", s.handle(s.setRating))
	s.route(api, "star", s.handle(s.star))
	s.route(api, "unstar", s.handle(s.unstar))
	s.route(api, "getScanStatus", s.handle(s.getScanStatus))
	s.route(api, "startScan", s.handle(s.startScan))
	s.route(api, "getCoverArt", s.rawHandle(s.getCoverArt))
	s.route(api, "stream", s.rawHandle(s.stream))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// route registers a handler under both spellings clients use: with and
// without the legacy ".view" suffix.
func (s *Server) route(api *mux.Router, name string, h http.Handler) {
	api.Handle("/"+name, h).Methods(http.MethodGet, http.MethodPost)
	api.Handle("/"+name+".view", h).Methods(http.MethodGet, http.MethodPost)
}

// handlerFunc produces an envelope reply or an error; the adapter takes care
// of format negotiation and error mapping.
type handlerFunc func(r *http.Request) (reply, error)

func (s *Server) handle(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromQuery(r.URL.Query())

		rep, err := fn(r)
		if err != nil {
			logger.Warn("request failed",
				logger.String("path", r.URL.Path),
				logger.ErrorField(err))
			rep = asAPIError(err)
		}
		writeReply(w, format, rep)
	})
}

// rawHandlerFunc writes its own response body. Implementations must not touch
// the ResponseWriter before all failable preparation is done, so that an
// error can still be rendered as an API reply.
type rawHandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) rawHandle(fn rawHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			logger.Warn("request failed",
				logger.String("path", r.URL.Path),
				logger.ErrorField(err))
			writeReply(w, formatFromQuery(r.URL.Query()), asAPIError(err))
		}
	})
}

// requestLogging tags every request with an ID and records its outcome.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r)

		logger.Info("handled request",
			logger.String("request_id", requestID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Duration("elapsed", time.Since(start)))
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the gateway until the process receives an interrupt or
// termination signal.
func Start() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := mpd.NewPool(cfg.MPDAddress, cfg.MPDPassword, cfg.PoolSize, cfg.PoolTimeout)
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("cannot reach mpd",
			logger.String("address", cfg.MPDAddress),
			logger.ErrorField(err))
	}

	lib, err := library.Open(library.Config{
		URL:       cfg.LibraryURL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		logger.Fatal("cannot open music library",
			logger.String("url", cfg.LibraryURL),
			logger.ErrorField(err))
	}

	var scrob scrobbler
	if cfg.ListenBrainzToken != "" {
		scrob = listenbrainz.NewClient(cfg.ListenBrainzToken)
		logger.Info("scrobbling enabled")
	}

	auth := &authenticator{
		user:        cfg.SubsonicUser,
		password:    cfg.SubsonicPassword,
		passwordHex: cfg.SubsonicPasswordHex,
	}
	srv := New(auth, pool, lib, scrob, audio.NewTranscoder(cfg.FFmpegPath))

	// WriteTimeout stays zero: stream responses are open-ended.
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", logger.String("address", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", logger.ErrorField(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not complete cleanly", logger.ErrorField(err))
	}
}
