// cmd/order-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"

	"pedidos/internal/pkg/authz"
	"pedidos/internal/pkg/bootstrap"
	"pedidos/internal/pkg/logger"
	"pedidos/internal/pkg/mq"
	"pedidos/internal/pkg/redis"
	"pedidos/internal/pkg/uow"
	"pedidos/internal/service/order/application"
	"pedidos/internal/service/order/domain/port"
	"pedidos/internal/service/order/infrastructure"
	"pedidos/internal/service/order/infrastructure/adapter"
	"pedidos/internal/service/order/interfaces"
)

func main() {
	cfg, err := bootstrap.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 需要在关停时释放的资源，由 RegisterHandlers 填充
	var (
		redisClient *redis.Client
		kafkaPub    *adapter.LifecycleKafkaAdapter
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.App.Name,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 1. 数据库与仓储
			db, err := infrastructure.OpenMysql(cfg.Infra.Mysql.DSN, cfg.Infra.Mysql.MaxOpenConns, cfg.Infra.Mysql.MaxIdleConns)
			if err != nil {
				logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
			}
			orderRepo := infrastructure.NewGormOrderRepository(db)
			paymentRepo := infrastructure.NewGormPaymentRepository(db)
			notifRepo := infrastructure.NewGormNotificationRepository(db)

			// 2. 可选的幂等键缓存：Redis 不可用时直接退化为纯数据库判定
			var cache port.IdempotencyCache
			if cfg.Infra.Redis.Addr != "" {
				redisClient, err = redis.NewClient(cfg.Infra.Redis.Addr)
				if err != nil {
					logger.Logger.Warn().Err(err).Msg("redis unavailable, idempotency fast path disabled")
				} else {
					cache = adapter.NewIdempotencyRedisAdapter(redisClient)
				}
			}

			// 3. 可选的生命周期事件发布
			var publisher port.EventPublisher
			if len(cfg.Infra.Kafka.Brokers) > 0 {
				writer := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic)
				kafkaPub = adapter.NewLifecycleKafkaAdapter(writer)
				publisher = kafkaPub
			}

			// 4. 访问策略：配置了表达式就用它，否则用默认的所有权策略
			policyExpr := cfg.Authz.Policy
			if policyExpr == "" {
				policyExpr = authz.DefaultPolicy
			}
			engine, err := authz.NewCELPolicyEngine(policyExpr)
			if err != nil {
				logger.Logger.Fatal().Err(err).Msg("invalid authorization policy expression")
			}
			guard := authz.NewGuard(engine)

			// 5. 用例编排与请求管道
			svc := application.NewOrderApplicationService(
				orderRepo,
				paymentRepo,
				notifRepo,
				adapter.NewPaymentSimulatorAdapter(),
				cache,
				publisher,
				otel.Tracer(cfg.App.Name),
			)
			coordinator := uow.NewCoordinator(uow.NewGormBeginner(db))

			handler := interfaces.NewOrderHandler(svc, guard, coordinator)
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if kafkaPub != nil {
				if err := kafkaPub.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("error closing kafka producer")
				}
			}
			if redisClient != nil {
				if err := redisClient.Close(); err != nil {
					logger.Logger.Error().Err(err).Msg("error closing redis client")
				}
			}
		},
	})
}
