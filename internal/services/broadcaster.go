package services

import "blackjack-pool-backend/internal/models"

type Broadcaster interface {
	BroadcastPoolUpdate(pool models.Pool)
	BroadcastSessionUpdate(userID string, view models.SessionView)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastPoolUpdate(models.Pool)                   {}
func (nopBroadcaster) BroadcastSessionUpdate(string, models.SessionView) {}
