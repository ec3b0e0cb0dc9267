// internal/game/reconcile.go
package game

import (
	"context"
	"time"

	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/store"
	"github.com/sirupsen/logrus"
)

// Reconcile repairs half-finished game starts. A waiting room that already has
// a session is flipped to playing, and a playing room without one gets its
// session.
// It returns the number of rooms repaired.
func (in *Initializer) Reconcile(ctx context.Context) (int, error) {
	anomalies, err := in.rooms.StartAnomalies(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, a := range anomalies {
		log := in.logger.WithFields(logrus.Fields{"room_id": a.RoomID, "anomaly": a.Kind})
		var ok bool
		switch a.Kind {
		case store.SessionWithoutFlip:
			ok, err = in.rooms.UpdateIf(ctx, a.RoomID,
				store.Guard{Status: models.RoomWaiting},
				store.RoomPatch{Status: models.RoomPlaying})
		case store.FlipWithoutSession:
			ok, err = in.backfillSession(ctx, a)
		}
		if err != nil {
			log.Errorf("reconcile failed: %v", err)
			continue
		}
		if ok {
			repaired++
			log.Warn("repaired half-finished game start")
			in.publish(ctx, a.RoomID)
		}
	}
	return repaired, nil
}

func (in *Initializer) backfillSession(ctx context.Context, a store.StartAnomaly) (bool, error) {
	room, err := in.rooms.GetRoom(ctx, a.RoomID)
	if err != nil {
		return false, err
	}
	if !room.Full() {
		in.logger.WithField("room_id", a.RoomID).Warn("playing room has an empty seat, cannot create session")
		return false, nil
	}
	return in.rooms.InsertSession(ctx, in.newSession(room))
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (in *Initializer) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if _, err := in.Reconcile(ctx); err != nil && ctx.Err() == nil {
				in.logger.Errorf("reconcile pass: %v", err)
			}
		}
	}
}
