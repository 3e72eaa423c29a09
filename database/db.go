package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voting-api/config"
	"voting-api/repository"
)

const connectTimeout = 10 * time.Second

// Open 根据配置打开存储后端并完成迁移。
// The returned store must be closed by the caller after the HTTP server stops.
func Open(ctx context.Context, cfg config.Database, l *zap.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return openGorm(sqlite.Open(cfg.URL), true, l)
	case config.DriverMySQL:
		return openGorm(mysql.Open(cfg.URL), false, l)
	case config.DriverMongo:
		return openMongo(ctx, cfg, l)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

func openGorm(dialector gorm.Dialector, singleWriter bool, l *zap.Logger) (repository.Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(l),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if singleWriter {
		// SQLite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := repository.MigrateGorm(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	l.Info("database ready", zap.String("dialect", dialector.Name()))
	return repository.NewGormStore(db), nil
}

func openMongo(ctx context.Context, cfg config.Database, l *zap.Logger) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("database: connect mongo: %w", err)
	}

	store := repository.NewMongoStore(client, cfg.MongoDBName)
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping mongo: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	l.Info("database ready", zap.String("dialect", "mongodb"), zap.String("database", cfg.MongoDBName))
	return store, nil
}

// NewGormLogger 将GORM日志输出到zap
func NewGormLogger(l *zap.Logger) logger.Interface {
	return logger.New(gormWriter{l.Sugar()}, logger.Config{
		SlowThreshold:             time.Second, // 慢SQL阈值
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true, // 忽略ErrRecordNotFound错误
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	s *zap.SugaredLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.s.Warnf(format, args...)
}
