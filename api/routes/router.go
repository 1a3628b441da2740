package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apexbuild/apexbuild-backend/api/controllers"
	"github.com/apexbuild/apexbuild-backend/api/middleware"
	"github.com/apexbuild/apexbuild-backend/internal/auth"
	"github.com/apexbuild/apexbuild-backend/internal/contact"
	"github.com/apexbuild/apexbuild-backend/internal/documents"
	"github.com/apexbuild/apexbuild-backend/internal/equipment"
	"github.com/apexbuild/apexbuild-backend/internal/materials"
	"github.com/apexbuild/apexbuild-backend/internal/payments"
	"github.com/apexbuild/apexbuild-backend/internal/procurement"
	"github.com/apexbuild/apexbuild-backend/internal/projects"
	"github.com/apexbuild/apexbuild-backend/internal/safety"
	"github.com/apexbuild/apexbuild-backend/internal/tasks"
	"github.com/apexbuild/apexbuild-backend/internal/team"
	"github.com/apexbuild/apexbuild-backend/internal/tickets"
	"github.com/apexbuild/apexbuild-backend/pkg/auth/session"
	"github.com/apexbuild/apexbuild-backend/pkg/config"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
	"github.com/apexbuild/apexbuild-backend/pkg/metrics"
	"github.com/apexbuild/apexbuild-backend/pkg/redis"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain services the router exposes.
type Services struct {
	Auth        auth.Service
	Projects    projects.Service
	Tasks       tasks.Service
	Tickets     tickets.Service
	Materials   materials.Service
	Procurement procurement.Service
	Payments    payments.Service
	Documents   documents.Service
	Equipment   equipment.Service
	Safety      safety.Service
	Team        team.Service
	Contact     contact.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	promRegistry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if promRegistry != nil {
		httpMetrics = metrics.NewHTTPMetrics(promRegistry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	staffOnly := middleware.RequireRole(logg, string(enums.AppRoleAdmin), string(enums.AppRoleEngineer))
	adminOnly := middleware.RequireRole(logg, string(enums.AppRoleAdmin))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, database, redisClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Post("/contact", controllers.ContactSubmit(svcs.Contact, logg))
		r.Post("/newsletter/subscribe", controllers.NewsletterSubscribe(svcs.Contact, logg))
		r.Get("/projects", controllers.ProjectShowcase(svcs.Projects, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
			r.Post("/change-password", controllers.AuthChangePassword(svcs.Auth, cfg.JWT, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ProjectList(svcs.Projects, logg))
			r.With(staffOnly).Post("/", controllers.ProjectCreate(svcs.Projects, logg))
			r.Route("/{projectId}", func(r chi.Router) {
				r.Get("/", controllers.ProjectGet(svcs.Projects, logg))
				r.With(staffOnly).Put("/", controllers.ProjectUpdate(svcs.Projects, logg))
				r.With(adminOnly).Delete("/", controllers.ProjectDelete(svcs.Projects, logg))
				r.With(staffOnly).Post("/status", controllers.ProjectUpdateStatus(svcs.Projects, logg))

				r.With(staffOnly).Post("/members", controllers.ProjectAddMember(svcs.Projects, logg))
				r.With(staffOnly).Delete("/members/{userId}", controllers.ProjectRemoveMember(svcs.Projects, logg))

				r.Get("/milestones", controllers.MilestoneList(svcs.Projects, logg))
				r.With(staffOnly).Post("/milestones", controllers.MilestoneCreate(svcs.Projects, logg))

				r.Get("/budget", controllers.ProjectBudgetSummary(svcs.Payments, logg))

				r.Get("/audits", controllers.AuditList(svcs.Safety, logg))
				r.Get("/inspections", controllers.InspectionList(svcs.Safety, logg))
			})
		})

		r.Route("/milestones/{milestoneId}", func(r chi.Router) {
			r.With(staffOnly).Post("/complete", controllers.MilestoneComplete(svcs.Projects, logg))
			r.With(staffOnly).Delete("/", controllers.MilestoneDelete(svcs.Projects, logg))
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", controllers.TaskList(svcs.Tasks, logg))
			r.With(staffOnly).Post("/", controllers.TaskCreate(svcs.Tasks, logg))
			r.Route("/{taskId}", func(r chi.Router) {
				r.Get("/", controllers.TaskGet(svcs.Tasks, logg))
				r.With(staffOnly).Put("/", controllers.TaskUpdate(svcs.Tasks, logg))
				r.With(staffOnly).Delete("/", controllers.TaskDelete(svcs.Tasks, logg))
				r.Post("/status", controllers.TaskUpdateStatus(svcs.Tasks, logg))
				r.With(staffOnly).Post("/assign", controllers.TaskAssign(svcs.Tasks, logg))
			})
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", controllers.TicketList(svcs.Tickets, logg))
			r.Post("/", controllers.TicketCreate(svcs.Tickets, logg))
			r.Route("/{ticketId}", func(r chi.Router) {
				r.Get("/", controllers.TicketGet(svcs.Tickets, logg))
				r.Put("/", controllers.TicketUpdate(svcs.Tickets, logg))
				r.With(staffOnly).Post("/status", controllers.TicketUpdateStatus(svcs.Tickets, logg))
				r.With(staffOnly).Post("/assign", controllers.TicketAssign(svcs.Tickets, logg))
			})
		})

		r.Route("/materials", func(r chi.Router) {
			r.Get("/", controllers.MaterialList(svcs.Materials, logg))
			r.Get("/low-stock", controllers.MaterialLowStock(svcs.Materials, logg))
			r.With(staffOnly).Post("/", controllers.MaterialCreate(svcs.Materials, logg))
			r.Route("/{materialId}", func(r chi.Router) {
				r.Get("/", controllers.MaterialGet(svcs.Materials, logg))
				r.With(staffOnly).Put("/", controllers.MaterialUpdate(svcs.Materials, logg))
				r.With(adminOnly).Delete("/", controllers.MaterialDelete(svcs.Materials, logg))
				r.Get("/prices", controllers.MaterialComparePrices(svcs.Procurement, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/transactions", controllers.MaterialListTransactions(svcs.Materials, logg))
			r.With(staffOnly).Post("/transactions", controllers.MaterialRecordTransaction(svcs.Materials, logg))
			r.Get("/requests", controllers.MaterialRequestList(svcs.Materials, logg))
			r.Post("/requests", controllers.MaterialRequestCreate(svcs.Materials, logg))
			r.With(staffOnly).Post("/requests/{requestId}/decision", controllers.MaterialRequestDecide(svcs.Materials, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.VendorList(svcs.Procurement, logg))
			r.With(staffOnly).Post("/", controllers.VendorCreate(svcs.Procurement, logg))
			r.Route("/{vendorId}", func(r chi.Router) {
				r.Get("/", controllers.VendorGet(svcs.Procurement, logg))
				r.With(staffOnly).Put("/", controllers.VendorUpdate(svcs.Procurement, logg))
				r.With(adminOnly).Delete("/", controllers.VendorDelete(svcs.Procurement, logg))
				r.Get("/prices", controllers.VendorListPrices(svcs.Procurement, logg))
				r.With(staffOnly).Post("/prices", controllers.VendorSetPrice(svcs.Procurement, logg))
			})
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Use(staffOnly)
			r.Get("/", controllers.PurchaseOrderList(svcs.Procurement, logg))
			r.Post("/", controllers.PurchaseOrderCreate(svcs.Procurement, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.PurchaseOrderGet(svcs.Procurement, logg))
				r.Post("/status", controllers.PurchaseOrderUpdateStatus(svcs.Procurement, logg))
				r.Post("/receive", controllers.PurchaseOrderReceive(svcs.Procurement, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(svcs.Payments, logg))
			r.With(staffOnly).Post("/", controllers.PaymentCreate(svcs.Payments, logg))
			r.With(staffOnly).Post("/mark-overdue", controllers.PaymentMarkOverdue(svcs.Payments, logg))
			r.Route("/{paymentId}", func(r chi.Router) {
				r.Get("/", controllers.PaymentGet(svcs.Payments, logg))
				r.With(staffOnly).Post("/status", controllers.PaymentUpdateStatus(svcs.Payments, logg))
			})
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", controllers.ExpenseList(svcs.Payments, logg))
			r.With(staffOnly).Post("/", controllers.ExpenseCreate(svcs.Payments, logg))
			r.With(adminOnly).Delete("/{expenseId}", controllers.ExpenseDelete(svcs.Payments, logg))
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", controllers.DocumentList(svcs.Documents, logg))
			r.Post("/", controllers.DocumentUpload(svcs.Documents, logg))
			r.Route("/{documentId}", func(r chi.Router) {
				r.Get("/", controllers.DocumentGet(svcs.Documents, logg))
				r.With(staffOnly).Delete("/", controllers.DocumentDelete(svcs.Documents, logg))
			})
		})

		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", controllers.EquipmentList(svcs.Equipment, logg))
			r.With(staffOnly).Post("/", controllers.EquipmentCreate(svcs.Equipment, logg))
			r.Route("/{equipmentId}", func(r chi.Router) {
				r.Get("/", controllers.EquipmentGet(svcs.Equipment, logg))
				r.With(staffOnly).Put("/", controllers.EquipmentUpdate(svcs.Equipment, logg))
				r.With(adminOnly).Delete("/", controllers.EquipmentDelete(svcs.Equipment, logg))
				r.With(staffOnly).Post("/allocate", controllers.EquipmentAllocate(svcs.Equipment, logg))
			})
			r.Get("/allocations", controllers.EquipmentListAllocations(svcs.Equipment, logg))
			r.With(staffOnly).Post("/allocations/{allocationId}/return", controllers.EquipmentReturn(svcs.Equipment, logg))
		})

		r.Route("/safety", func(r chi.Router) {
			r.Route("/incidents", func(r chi.Router) {
				r.Get("/", controllers.IncidentList(svcs.Safety, logg))
				r.Post("/", controllers.IncidentReport(svcs.Safety, logg))
				r.With(staffOnly).Post("/{incidentId}/resolve", controllers.IncidentResolve(svcs.Safety, logg))
			})
			r.Route("/audits", func(r chi.Router) {
				r.With(staffOnly).Post("/", controllers.AuditSchedule(svcs.Safety, logg))
				r.With(staffOnly).Post("/{auditId}/complete", controllers.AuditComplete(svcs.Safety, logg))
			})
			r.Route("/checklists", func(r chi.Router) {
				r.Get("/", controllers.ChecklistList(svcs.Safety, logg))
				r.With(staffOnly).Post("/", controllers.ChecklistCreate(svcs.Safety, logg))
				r.With(staffOnly).Put("/{checklistId}/items", controllers.ChecklistUpdateItems(svcs.Safety, logg))
			})
			r.Route("/inspections", func(r chi.Router) {
				r.With(staffOnly).Post("/", controllers.InspectionSchedule(svcs.Safety, logg))
				r.With(staffOnly).Post("/{inspectionId}/outcome", controllers.InspectionRecordOutcome(svcs.Safety, logg))
			})
			r.Route("/ncrs", func(r chi.Router) {
				r.Get("/", controllers.NCRList(svcs.Safety, logg))
				r.With(staffOnly).Post("/", controllers.NCRRaise(svcs.Safety, logg))
				r.Route("/{reportId}", func(r chi.Router) {
					r.Get("/", controllers.NCRGet(svcs.Safety, logg))
					r.With(staffOnly).Post("/status", controllers.NCRUpdateStatus(svcs.Safety, logg))
				})
			})
		})

		r.Route("/team", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", controllers.TeamList(svcs.Team, logg))
			r.Post("/invite", controllers.TeamInvite(svcs.Team, logg))
			r.Route("/{profileId}", func(r chi.Router) {
				r.Get("/", controllers.TeamGet(svcs.Team, logg))
				r.Put("/", controllers.TeamUpdateProfile(svcs.Team, logg))
				r.Post("/role", controllers.TeamUpdateRole(svcs.Team, logg))
				r.Post("/active", controllers.TeamSetActive(svcs.Team, logg))
			})
		})

		r.Route("/contact-messages", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", controllers.ContactListMessages(svcs.Contact, logg))
			r.Post("/{messageId}/handled", controllers.ContactMarkHandled(svcs.Contact, logg))
		})
	})

	return r
}
