// cmd/roomwatch/main.go
//
// roomwatch follows a room from the waiting view until its game starts.
//
//	LUDO_TOKEN=... roomwatch <room-id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/client"
	"github.com/jason-s-yu/ludo/internal/config"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/watcher"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: roomwatch <room-id>")
	}
	roomID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid room id: %w", err)
	}

	cfg, err := config.LoadWatch()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)

	c := client.New(cfg.ServerURL, client.WithLogger(logger))
	c.SetToken(cfg.Token)

	lastKnown := models.RoomWaiting
	if cfg.Token != "" {
		room, err := c.GetRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("fetching room: %w", err)
		}
		lastKnown = room.Status
		printRoom(room)
	}

	signals := make(chan watcher.Signal, 8)
	w := c.WatchRoom(roomID, lastKnown, func(s watcher.Signal) { signals <- s }, watcher.Config{
		SessionTimeout: cfg.SessionTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		MaxFailures:    cfg.MaxFailures,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		StableAfter:    cfg.StableAfter,
	})

	done := make(chan watcher.State, 1)
	go func() { done <- w.Run(ctx) }()

	for {
		select {
		case s := <-signals:
			logger.WithField("signal", s.String()).Debug("watcher signal")
			handleSignal(ctx, c, roomID, s, logger)

		case final := <-done:
		drain:
			for {
				select {
				case s := <-signals:
					handleSignal(ctx, c, roomID, s, logger)
				default:
					break drain
				}
			}
			logger.Infof("watcher finished in state %s", final)
			if final == watcher.StateDegraded {
				return fmt.Errorf("lost track of room %s", roomID)
			}
			return nil
		}
	}
}

func handleSignal(ctx context.Context, c *client.Client, roomID uuid.UUID, s watcher.Signal, logger *logrus.Logger) {
	switch s {
	case watcher.SignalTransition:
		sess, err := c.Session(ctx, roomID)
		if err != nil {
			logger.Warnf("game started but session fetch failed: %v", err)
			return
		}
		fmt.Printf("game %s started; board of %d cells, %s moves first\n",
			sess.ID, sess.Board.BoardSize, sess.CurrentPlayerID)

	case watcher.SignalRefresh:
		room, err := c.GetRoom(ctx, roomID)
		if err != nil {
			logger.Warnf("refresh failed: %v", err)
			return
		}
		printRoom(room)

	case watcher.SignalDegraded:
		fmt.Println("lost live updates; reload the room manually")
	}
}

func printRoom(room *models.Room) {
	fmt.Printf("room %s [%s] status=%s\n", room.ID, room.Code, room.Status)
	for i, seat := range room.Seats {
		switch {
		case !seat.Occupied():
			fmt.Printf("  seat %d: empty\n", i+1)
		case seat.Ready():
			fmt.Printf("  seat %d: %s ready\n", i+1, seat.UserID)
		default:
			fmt.Printf("  seat %d: %s picking a theme\n", i+1, seat.UserID)
		}
	}
}
