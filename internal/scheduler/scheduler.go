// Package scheduler запускает периодическое закрытие просроченных заявок.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer закрывает просроченные заявки и возвращает их число.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time, batch int) (int, error)
}

// ExpirySweeper - обертка над robfig/cron для цикла закрытия заявок.
type ExpirySweeper struct {
	cron    *cron.Cron
	expirer Expirer
	log     *zap.Logger
	spec    string
	batch   int
	now     func() time.Time
}

// New создает планировщик с расписанием spec, например "@every 5m".
func New(expirer Expirer, log *zap.Logger, spec string, batch int) *ExpirySweeper {
	return &ExpirySweeper{
		cron:    cron.New(),
		expirer: expirer,
		log:     log,
		spec:    spec,
		batch:   batch,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start регистрирует задачу и запускает планировщик.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("expiry sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop останавливает планировщик и ждет завершения запущенной задачи.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("expiry sweeper stopped")
}

// RunOnce выполняет один проход и возвращает число закрытых заявок.
func (s *ExpirySweeper) RunOnce(ctx context.Context) int {
	n, err := s.expirer.ExpireOverdue(ctx, s.now(), s.batch)
	if err != nil {
		s.log.Error("expire overdue service requests", zap.Int("expired", n), zap.Error(err))
		return n
	}
	if n > 0 {
		s.log.Info("expired overdue service requests", zap.Int("expired", n))
	}
	return n
}
