package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playq/triviaroom/internal/api"
	"github.com/playq/triviaroom/internal/event"
	"github.com/playq/triviaroom/internal/game"
	"github.com/playq/triviaroom/internal/gateway"
	"github.com/playq/triviaroom/internal/history"
	"github.com/playq/triviaroom/internal/question"
	"github.com/playq/triviaroom/internal/room"
	"github.com/playq/triviaroom/internal/session"
	"github.com/playq/triviaroom/internal/store"
	"github.com/playq/triviaroom/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Rooms struct {
			Addrs      []string
			Pass       string
			Prefix     string
			TTLMinutes int
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	// Postgres.History is optional; with an empty Addr the archiver is not
	// wired and finished games are simply not recorded.
	Postgres struct {
		History struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			rooms  redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres struct {
			history *pgxpool.Pool
		}
	}

	service struct {
		room    *room.Service
		game    *game.Service
		session *session.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.rooms, err = connect(s.c.Redis.Rooms.Addrs, s.c.Redis.Rooms.Pass)
	if err != nil {
		return fmt.Errorf("rooms: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	h := s.c.Postgres.History
	if h.Addr == "" {
		slog.Info("server: history archive not configured, finished games will not be recorded")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", h.User, h.Pass, h.Addr, h.Name))
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	s.infra.postgres.history = db
	return nil
}

func (s *Server) initService() {
	s.service.room = room.NewService(room.Config{
		Rooms: store.NewRedisRooms(store.Config{
			Redis:  s.infra.redis.rooms,
			Prefix: s.c.Redis.Rooms.Prefix,
			TTL:    time.Duration(s.c.Redis.Rooms.TTLMinutes) * time.Minute,
		}),
	})

	s.service.game = game.NewService(game.Config{
		Saver: s.service.room,
	})

	s.service.session = session.NewService(session.Config{
		Rooms:    s.service.room,
		Game:     s.service.game,
		EventBus: s.eb,
	})

	if s.infra.postgres.history != nil {
		history.NewArchiver(history.Config{
			DB:       s.infra.postgres.history,
			EventBus: s.eb,
		})
	}
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Questions:    demoQuestionSource(),
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	gateway.New(gateway.Config{
		Router:       e,
		Session:      s.service.session,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.postgres.history != nil {
		s.infra.postgres.history.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}

// demoQuestionSource stands in for the AI-backed question service.
// TODO: replace with the HTTP question-service client once its contract is
// published.
func demoQuestionSource() question.Source {
	return question.NewStaticSource(map[string][]string{
		"Which planet has the shortest day?":           {"Jupiter", "Mercury", "Earth", "Mars"},
		"What year did the Berlin Wall fall?":          {"1989", "1991", "1987", "1990"},
		"Who painted The Night Watch?":                 {"Rembrandt", "Vermeer", "Van Gogh", "Rubens"},
		"Which element has the atomic number 6?":       {"Carbon", "Oxygen", "Helium", "Nitrogen"},
		"What is the longest river in Asia?":           {"Yangtze", "Mekong", "Ganges", "Indus"},
		"Which country hosted the 1998 World Cup?":     {"France", "Brazil", "Japan", "Italy"},
		"What does the acronym RAID stand for?":        {"Redundant Array of Independent Disks", "Rapid Access of Indexed Data", "Random Array of Inexpensive Drives", "Read And Inspect Disk"},
		"Which composer wrote The Four Seasons?":       {"Vivaldi", "Bach", "Mozart", "Haydn"},
		"What is the capital of New Zealand?":          {"Wellington", "Auckland", "Christchurch", "Hamilton"},
		"Which ocean is the deepest on average?":       {"Pacific", "Atlantic", "Indian", "Arctic"},
		"Who wrote One Hundred Years of Solitude?":     {"Gabriel Garcia Marquez", "Jorge Luis Borges", "Mario Vargas Llosa", "Pablo Neruda"},
		"What is the chemical symbol for tungsten?":    {"W", "T", "Tu", "Tg"},
		"Which mountain range contains K2?":            {"Karakoram", "Himalayas", "Andes", "Alps"},
		"In which decade was the first email sent?":    {"1970s", "1960s", "1980s", "1990s"},
		"Which bird is the fastest in level flight?":   {"Common swift", "Peregrine falcon", "Golden eagle", "Albatross"},
	})
}
