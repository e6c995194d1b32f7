package services

import (
	"context"
	"fmt"
	"time"

	"tiffin-api/pkg/logging"
	"tiffin-api/pkg/timewindow"
)

// SweepResult summarizes one expiry sweep.
type SweepResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Found   int       `json:"found"`
	Expired int       `json:"expired"`
	Failed  int       `json:"failed"`
}

// SubscriptionExpiryService flags subscriptions whose end date has passed.
// It is the only writer of status and isExpired during normal operation.
type SubscriptionExpiryService struct {
	subs     SubscriptionRepository
	tw       timewindow.Window
	observer SweepObserver
	now      func() time.Time
}

func NewSubscriptionExpiryService(subs SubscriptionRepository, tw timewindow.Window, observer SweepObserver) *SubscriptionExpiryService {
	return &SubscriptionExpiryService{subs: subs, tw: tw, observer: observer, now: time.Now}
}

// ExpireOverdue marks every unflagged subscription that ended before today.
// Rows that fail to save are logged and skipped.
func (s *SubscriptionExpiryService) ExpireOverdue(ctx context.Context) (*SweepResult, error) {
	cutoff := s.tw.Today(s.now())
	overdue, err := s.subs.FindOverdueSubscriptions(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find overdue subscriptions: %w", err)
	}

	result := &SweepResult{Cutoff: cutoff, Found: len(overdue)}
	for i := range overdue {
		sub := &overdue[i]
		prev := sub.Status
		if !sub.MarkExpired() {
			continue
		}
		if err := s.subs.SaveExpiry(ctx, sub); err != nil {
			result.Failed++
			logging.Errorw("failed to expire subscription",
				"user_subscription_id", sub.ID,
				"error", err,
			)
			continue
		}
		result.Expired++
		logging.Infow("subscription expired",
			"user_subscription_id", sub.ID,
			"user_id", sub.UserID,
			"previous_status", prev,
			"status", sub.Status,
			"end_date", sub.EndDate,
		)
	}

	if s.observer != nil {
		s.observer.OnSweep(ctx, *result)
	}
	logging.Infof("Expiry sweep finished: %d found, %d expired, %d failed", result.Found, result.Expired, result.Failed)
	return result, nil
}

// Status reports "partial" when some rows could not be saved.
func (r SweepResult) Status() string {
	if r.Failed > 0 {
		return "partial"
	}
	return "ok"
}
