package main

import (
	"context"
	"time"

	"storefront/internal/config"
	"storefront/internal/document"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/lock"
	"storefront/internal/infra/mongostore"
	"storefront/internal/infra/otp"
	"storefront/internal/infra/payment"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/shipment"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

// stores is the repository set for one STORE_DRIVER.
type stores struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	users    repository.UserRepository
	audit    repository.AuditLogRepository
	tx       repository.TransactionManager
	ping     handler.HealthCheck
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, log *logrus.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMongo {
		client, err := db.ConnectMongo(ctx, cfg)
		if err != nil {
			return stores{}, err
		}
		mdb := client.Database(cfg.MongoDB)
		if err := mongostore.EnsureIndexes(ctx, mdb); err != nil {
			return stores{}, err
		}
		return stores{
			orders:   mongostore.NewOrderMongoRepository(mdb),
			products: mongostore.NewProductMongoRepository(mdb),
			users:    mongostore.NewUserMongoRepository(mdb),
			audit:    mongostore.NewAuditLogMongoRepository(mdb),
			tx:       mongostore.NewTxManagerMongo(client, mdb),
			ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil
	}

	gdb, err := db.Connect(cfg, log)
	if err != nil {
		return stores{}, err
	}
	if err := infraRepo.AutoMigrate(gdb); err != nil {
		return stores{}, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return stores{}, err
	}
	return stores{
		orders:   infraRepo.NewOrderGormRepository(gdb),
		products: infraRepo.NewProductGormRepository(gdb),
		users:    infraRepo.NewUserGormRepository(gdb),
		audit:    infraRepo.NewAuditLogGormRepository(gdb),
		tx:       infraRepo.NewTxManagerGorm(gdb),
		ping:     sqlDB.PingContext,
		close:    func() { _ = sqlDB.Close() },
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		cancel()
		log.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("open store")
	}
	defer st.close()

	rdb, err := db.ConnectRedis(ctx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer rdb.Close()

	idGen := &uuidGenerator{}
	clock := &realClock{}

	deps := usecase.Deps{
		Orders:    st.orders,
		Products:  st.products,
		Users:     st.users,
		AuditLogs: st.audit,
		Tx:        st.tx,
		Locker:    lock.NewRedisOrderLocker(rdb, log).WithLease(lock.LeaseFor(cfg.GatewayTimeout, 2)),
		Clock:     clock,
		IDs:       idGen,
		Log:       log,
	}

	//gateways
	payments := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout)
	carrier := shipment.NewDelhiveryClient(shipment.Config{
		BaseURL:        cfg.DelhiveryBaseURL,
		Token:          cfg.DelhiveryToken,
		PickupLocation: cfg.DelhiveryPickupLocation,
		Timeout:        cfg.GatewayTimeout,
	})
	sellerName := cfg.StoreName

	//usecases
	shipmentUC := usecase.NewShipmentUsecase(deps, carrier, usecase.ShipmentOptions{
		DefaultWeightKg: cfg.DelhiveryDefaultWeightKg,
		SellerName:      sellerName,
	})
	orderUC := usecase.NewOrderUsecase(deps, shipmentUC, document.NewInvoiceRenderer(sellerName), usecase.OrderOptions{
		AutoCreateShipment: cfg.AutoCreateShipment,
	})
	adminOrderUC := usecase.NewAdminOrderUsecase(deps)
	paymentUC := usecase.NewPaymentUsecase(deps, payments)
	productUC := usecase.NewProductUsecase(deps)
	authUC := usecase.NewAuthUsecase(
		st.users,
		otp.NewRedisStore(rdb),
		otp.NewSMTPSender(otp.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, log),
		usecase.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, clock),
		clock,
		idGen,
		cfg.IsAdminEmail,
	)

	//handlers
	guards := handler.NewGuards(cfg.JWTSecret, st.users, middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	health := handler.NewHealthHandler(map[string]handler.HealthCheck{
		cfg.StoreDriver: st.ping,
		"redis":         func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	srv := server.New(
		server.Options{Addr: cfg.Addr(), AllowedOrigins: cfg.CORSAllowedOrigins},
		log,
		guards,
		[]server.PublicRoutes{health, handler.NewProductHandler(productUC)},
		handler.NewAuthHandler(authUC),
		handler.NewOrderHandler(orderUC),
		handler.NewAdminOrderHandler(adminOrderUC),
		handler.NewShipmentHandler(shipmentUC),
		handler.NewPaymentHandler(paymentUC),
		handler.NewAdminProductHandler(productUC),
	)

	if err := srv.Run(context.Background()); err != nil {
		log.WithError(err).Fatal("server")
	}
}
