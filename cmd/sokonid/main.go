package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sokoni-dev/sokoni"
	"github.com/sokoni-dev/sokoni/marketplace"
	"github.com/sokoni-dev/sokoni/middleware"
	"github.com/sokoni-dev/sokoni/payments"
)

func main() {
	cfg, err := sokoni.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	mpesaCfg, err := payments.LoadConfig()
	if err != nil {
		log.Fatalf("mpesa config: %v", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := createTables(context.Background(), db); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	repo := sokoni.NewRepositoryManager(db)
	repo.MustValidate()

	provider := sokoni.NewAccountProvider(repo.Accounts())
	auther := sokoni.NewAuthenticator(provider, cfg)
	engine := sokoni.NewApprovalEngine(repo)
	guard := sokoni.NewGuard()
	settings := sokoni.NewSettings(cfg.SettingsPath)

	store := marketplace.NewStore(db)
	catalog := marketplace.NewCatalog(store)

	payStore := payments.NewStore(db)
	gateway := payments.NewMpesaClient(mpesaCfg)
	payService := payments.NewService(payStore, gateway, catalog, cfg.PlatformCommission)

	requireAuth := middleware.RequireAuth(auther.TokenService(), repo.Accounts())
	requireApproved := middleware.RequireApproval(guard)

	app := fiber.New(fiber.Config{
		AppName: "sokonid",
	})
	app.Use(recover.New())

	api := app.Group("/api/v1")

	controller := sokoni.NewAPIController(
		sokoni.WithControllerRepo(repo),
		sokoni.WithControllerAuther(auther),
		sokoni.WithControllerSettings(settings),
		sokoni.WithControllerDebug(cfg.Debug),
	)
	controller.Approvals = engine

	sokoni.RegisterAPIRoutes(api, controller, requireAuth, requireApproved)
	marketplace.RegisterRoutes(api, marketplace.NewHandlers(catalog), requireAuth)
	payments.RegisterRoutes(api, payments.NewHandlers(payService, nil), requireAuth)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func createTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*sokoni.Account)(nil),
		(*sokoni.Approval)(nil),
		(*marketplace.Listing)(nil),
		(*marketplace.Order)(nil),
		(*payments.Payment)(nil),
		(*payments.Transaction)(nil),
		(*payments.PayoutAccount)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
