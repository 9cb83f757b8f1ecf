package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-fundadmin/internal/common/api"
	"go-fundadmin/internal/config"
	"go-fundadmin/internal/database"
	"go-fundadmin/internal/features/audit"
	"go-fundadmin/internal/features/automation"
	"go-fundadmin/internal/features/bulkops"
	"go-fundadmin/internal/features/chatops"
	"go-fundadmin/internal/features/email"
	"go-fundadmin/internal/features/notification"
	"go-fundadmin/internal/features/record"
	"go-fundadmin/internal/features/recurring"
	"go-fundadmin/internal/features/timer"
	"go-fundadmin/internal/logger"
	"go-fundadmin/internal/middleware"
	"go-fundadmin/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())
	app.Use(middleware.CompanyMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d route groups\n", len(routes))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes sets up retention TTLs and tenant partition indexes.
func InitializeIndexes(lc fx.Lifecycle, db *database.MongodbDB, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				ttls := []struct {
					collection string
					days       int
				}{
					{"automation_events", cfg.EventRetentionDays},
					{"automation_executions", cfg.ExecutionRetentionDays},
					{"bulk_operations", cfg.BulkRetentionDays},
				}
				for _, t := range ttls {
					if err := db.EnsureTTLIndex(ctx, t.collection, "created_at", t.days); err != nil {
						log.Printf("Failed to ensure TTL index on %s: %v", t.collection, err)
					}
				}

				for _, col := range []string{"automation_rules", "bulk_operations", "recurring_jobs", "notifications"} {
					if err := db.EnsureScopeIndexes(ctx, col); err != nil {
						log.Printf("Failed to ensure scope indexes on %s: %v", col, err)
					}
				}
			}()
			return nil
		},
	})
}

// WireEngine connects the three services that form a cycle: the action
// executor starts bulk playbooks, completed bulk operations and failed
// recurring runs feed back into the event engine.
func WireEngine(
	executor automation.ActionExecutor,
	automationService automation.AutomationService,
	bulkService bulkops.BulkOperationService,
	recurringService recurring.RecurringJobService,
) {
	executor.SetPlaybookStarter(bulkService)
	bulkService.SetEmitter(automationService)
	recurringService.SetEmitter(automationService)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,
			database.NewDatabase,

			// Repositories
			audit.NewAuditRepository,
			record.NewRecordRepository,
			automation.NewRuleRepository,
			automation.NewEventRepository,
			automation.NewExecutionRepository,
			automation.NewScheduledActionRepository,
			bulkops.NewBulkOperationRepository,
			recurring.NewRecurringJobRepository,
			notification.NewNotificationRepository,
			email.NewEmailLogRepository,

			// Services
			audit.NewAuditService,
			notification.NewNotificationService,
			chatops.NewChatService,
			email.NewEmailService,
			automation.NewRuleMatcher,
			automation.NewActionExecutor,
			automation.NewAutomationService,
			bulkops.NewProgressHub,
			bulkops.NewHandlerRegistry,
			bulkops.NewBulkOperationService,
			recurring.NewTargetResolver,
			recurring.NewRecurringJobService,

			// Interface adapters
			func(s notification.NotificationService) automation.Notifier { return s },

			// Controllers
			audit.NewAuditController,
			automation.NewAutomationController,
			bulkops.NewBulkOperationController,
			recurring.NewRecurringJobController,
			notification.NewNotificationController,

			// API routes
			AsRoute(audit.NewAuditApi),
			AsRoute(automation.NewAutomationApi),
			AsRoute(bulkops.NewBulkOperationApi),
			AsRoute(recurring.NewRecurringJobApi),
			AsRoute(notification.NewNotificationApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			WireEngine,
			RegisterAllRoutesWithAnnotation,
			StartServer,
			timer.NewPoller,
			InitializeIndexes,
		),
	)

	app.Run()
}
