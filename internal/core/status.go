package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Stats is a point-in-time view of the registry.
type Stats struct {
	Sessions int        `json:"sessions"`
	Rooms    []RoomInfo `json:"rooms"`
}

// Stats reads the registry under its read lock.
func (r *Registry) Stats() Stats {
	return Stats{
		Sessions: r.Count(),
		Rooms:    r.Rooms(),
	}
}

// RunStatus logs a status line every interval until ctx is done. It only reads.
func (r *Registry) RunStatus(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.logStatus()
		}
	}
}

func (r *Registry) logStatus() {
	stats := r.Stats()
	rooms := zerolog.Dict()
	for _, room := range stats.Rooms {
		rooms.Int(room.Name, len(room.Members))
	}
	r.log.Info().Int("sessions", stats.Sessions).Dict("rooms", rooms).Msg("server status")
}
