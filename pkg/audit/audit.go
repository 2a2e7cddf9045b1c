package audit

import (
	"context"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Recorder is what components depend on; Logger is the Mongo-backed
// implementation.
type Recorder interface {
	Record(ctx context.Context, action, entityID, actor string, data map[string]any)
}

// Logger writes admin activity to the audit collection off the request
// path. Losing an entry logs a warning but never fails the operation that
// produced it.
type Logger struct {
	service string
	mongo   *repository.MongoRepository
	log     *zap.Logger
}

func New(service string, mongo *repository.MongoRepository, log *zap.Logger) *Logger {
	return &Logger{service: service, mongo: mongo, log: log}
}

func (l *Logger) Record(ctx context.Context, action, entityID, actor string, data map[string]any) {
	entry := &repository.AuditLog{
		Service:  l.service,
		Action:   action,
		EntityID: entityID,
		Actor:    actor,
		Data:     bson.M(data),
	}
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.mongo.CreateAuditLog(writeCtx, entry); err != nil {
			l.log.Warn("audit write failed",
				zap.String("action", action),
				zap.String("entity_id", entityID),
				zap.Error(err))
		}
	}()
}
