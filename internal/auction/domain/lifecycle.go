package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trigger identifies who requested a lifecycle transition.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Transition is the fact produced by a successful guard check.
// It is only meaningful once the store has committed the new status.
type Transition struct {
	AuctionID uuid.UUID
	From      AuctionStatus
	To        AuctionStatus
	Trigger   Trigger
}

// Ends reports whether this transition closes the auction.
func (t Transition) Ends() bool {
	return t.To == StatusEnded
}

// Start moves an UPCOMING auction to LIVE. A scheduled start requires the
// start time to have passed; a manual start does not look at the clock.
func (a *Auction) Start(now time.Time, trigger Trigger) (*Auction, Transition, error) {
	if a.Status != StatusUpcoming {
		return nil, Transition{}, fmt.Errorf("%w: cannot start auction %s in status %s",
			ErrInvalidTransition, a.ID, a.Status)
	}
	if trigger == TriggerScheduled && now.Before(a.StartTime) {
		return nil, Transition{}, fmt.Errorf("%w: auction %s starts at %s",
			ErrInvalidTransition, a.ID, a.StartTime.Format(time.RFC3339))
	}
	return a.transition(StatusLive, trigger)
}

// End moves a LIVE auction to ENDED. A scheduled end requires the end time to
// have passed; a manual end does not look at the clock.
func (a *Auction) End(now time.Time, trigger Trigger) (*Auction, Transition, error) {
	if a.Status != StatusLive {
		return nil, Transition{}, fmt.Errorf("%w: cannot end auction %s in status %s",
			ErrInvalidTransition, a.ID, a.Status)
	}
	if trigger == TriggerScheduled && !a.Expired(now) {
		return nil, Transition{}, fmt.Errorf("%w: auction %s ends at %s",
			ErrInvalidTransition, a.ID, a.EndTime.Format(time.RFC3339))
	}
	return a.transition(StatusEnded, trigger)
}

func (a *Auction) transition(to AuctionStatus, trigger Trigger) (*Auction, Transition, error) {
	next := a.Clone()
	next.Status = to
	return next, Transition{
		AuctionID: a.ID,
		From:      a.Status,
		To:        to,
		Trigger:   trigger,
	}, nil
}
