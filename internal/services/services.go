package services

import (
	"context"
	"time"

	"github.com/senyabanana/autoservice-market/internal/cache"
	"github.com/senyabanana/autoservice-market/internal/events"
	"github.com/senyabanana/autoservice-market/internal/metrics"
	"github.com/senyabanana/autoservice-market/internal/models"
	"github.com/senyabanana/autoservice-market/internal/repository"

	"go.uber.org/zap"
)

// Deps - общие зависимости сервисов.
type Deps struct {
	Store   repository.Store
	Cache   cache.RequestCache
	Events  events.Publisher
	Metrics *metrics.Metrics
	Log     *zap.Logger
	// Now возвращает текущее время; в тестах подменяется.
	Now func() time.Time
}

// defaultNow обрезает время до миллисекунд, чтобы оно совпадало после чтения из любой базы.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Cache == nil {
		d.Cache = cache.NopCache{}
	}
	if d.Events == nil {
		d.Events = events.NewLogPublisher(d.Log)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Now == nil {
		d.Now = defaultNow
	}
	return d
}

// publish отправляет событие после фиксации транзакции. Ошибка только логируется.
func (d Deps) publish(ctx context.Context, e events.Event) {
	if e.At.IsZero() {
		e.At = d.Now()
	}
	if err := d.Events.Publish(ctx, e); err != nil {
		d.Log.Warn("publish event",
			zap.String("type", string(e.Type)),
			zap.String("request_id", e.RequestID),
			zap.Error(err))
	}
}

// invalidate сбрасывает заявку из кэша.
func (d Deps) invalidate(ctx context.Context, requestID string) {
	if err := d.Cache.Invalidate(ctx, requestID); err != nil {
		d.Log.Warn("invalidate cached request", zap.String("request_id", requestID), zap.Error(err))
	}
}

// fail учитывает ошибку в метриках и возвращает ее без изменений.
func (d Deps) fail(err error) error {
	if err != nil {
		d.Metrics.Error(models.ErrorKind(err))
	}
	return err
}
