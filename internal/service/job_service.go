package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// PaymentTimeout is how long an online order may wait for payment.
	PaymentTimeout = 30 * time.Minute
	staleOrderSpec = "@every 10m"
)

type JobService struct {
	orders *OrderService
	log    *zap.Logger
	now    func() time.Time
}

func NewJobService(orders *OrderService, log *zap.Logger) *JobService {
	return &JobService{orders: orders, log: log, now: time.Now}
}

// CancelUnpaidOrders cancels online orders whose payment never completed.
func (s *JobService) CancelUnpaidOrders(ctx context.Context) error {
	n, err := s.orders.CancelStalePending(ctx, s.now().Add(-PaymentTimeout))
	if err != nil {
		return fmt.Errorf("cron job: failed to cancel unpaid orders: %w", err)
	}
	if n > 0 {
		s.log.Info("cron job: cancelled unpaid orders", zap.Int("count", n))
	}
	return nil
}

// Start schedules the background jobs. Stop the returned scheduler on shutdown.
func (s *JobService) Start() (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(staleOrderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.CancelUnpaidOrders(ctx); err != nil {
			s.log.Error("cron job failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
