//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/playq/triviaroom/internal/api"
	"github.com/playq/triviaroom/internal/domain"
)

const baseURL = "http://localhost:8080"

// TestTriviaRoom drives a full game against a locally running server:
// create, join, start, everyone answers every question concurrently, advance
// to the end, while one observer follows the room's pubsub channel.
func TestTriviaRoom(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var (
		creator = "alice"
		others  = []string{"bob", "carol"}
		wg      = new(sync.WaitGroup)
	)

	var created api.RoomView
	doJSON(t, ctx, creator, http.MethodPost, "/v1/rooms", api.CreateRoomRequest{
		Topic:           "general",
		Difficulty:      "medium",
		QuestionCount:   5,
		MaxPlayers:      4,
		TimePerQuestion: 30,
	}, &created)
	t.Logf("Created room %s", created.RoomID)

	for _, u := range others {
		doJSON(t, ctx, u, http.MethodPost, "/v1/rooms/"+created.RoomID+"/join", nil, nil)
	}

	subscribeToRoom(t, makeRedis(t), wg, created.RoomID)

	var started api.RoomView
	doJSON(t, ctx, creator, http.MethodPost, "/v1/rooms/"+created.RoomID+"/start", nil, &started)
	require.Equal(t, string(domain.RoomPlaying), started.Status)

	for i := 0; i < started.TotalQuestions; i++ {
		var state api.GameStateView
		doJSON(t, ctx, creator, http.MethodGet, "/v1/rooms/"+created.RoomID+"/state", nil, &state)
		require.NotNil(t, state.CurrentQuestion)
		t.Logf("Question %d: %s", state.CurrentQuestionIndex, state.CurrentQuestion.Text)

		var eg errgroup.Group
		for ui, u := range append([]string{creator}, others...) {
			ui, u := ui, u
			eg.Go(func() error {
				var res api.SubmitAnswerResult
				doJSON(t, ctx, u, http.MethodPost, "/v1/rooms/"+created.RoomID+"/answers", api.SubmitAnswerRequest{
					QuestionID:       state.CurrentQuestion.QuestionID,
					AnswerIndex:      ui % len(state.CurrentQuestion.Options),
					TimeSpentSeconds: float64(ui + 1),
				}, &res)
				t.Logf("User %q answered: correct=%v earned=%d total=%d", u, res.IsCorrect, res.ScoreEarned, res.TotalScore)
				return nil
			})
		}
		require.NoError(t, eg.Wait())

		doJSON(t, ctx, creator, http.MethodPost, "/v1/rooms/"+created.RoomID+"/next", nil, nil)
	}

	var final api.GameStateView
	doJSON(t, ctx, creator, http.MethodGet, "/v1/rooms/"+created.RoomID+"/state", nil, &final)
	require.Equal(t, string(domain.RoomFinished), final.Status)
	for _, e := range final.Leaderboard {
		t.Logf("%s: %d points (%d correct)", e.UserID, e.Score, e.CorrectAnswers)
	}

	wg.Wait()
}

func doJSON(t *testing.T, ctx context.Context, user, method, path string, in, out any) {
	t.Helper()

	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", user)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Less(t, resp.StatusCode, 300, "%s %s as %s", method, path, user)

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func subscribeToRoom(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	sub := rc.Subscribe(ctx, fmt.Sprintf("local:pubsub:room:%s", roomID))
	t.Cleanup(func() { sub.Close() })

	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				return
			}

			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			t.Logf("notification: %s", n.Event)
			if n.Event == domain.EventNameGameFinished {
				return
			}
		}
	}()
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}
