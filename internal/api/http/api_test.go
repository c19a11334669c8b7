package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type recordingSender struct {
	lastCode string
}

func (s *recordingSender) SendCode(_ context.Context, _ string, code string, _ domain.OTPPurpose) error {
	s.lastCode = code
	return nil
}

type testEnv struct {
	app    *fiber.App
	sender *recordingSender
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	users := memory.NewUserRepository()
	tickets := memory.NewTicketRepository(users)
	messages := memory.NewTicketMessageRepository()
	notifications := memory.NewNotificationRepository()
	activity := memory.NewActivityLogRepository()
	otps := memory.NewOTPRepository()

	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager("suite-secret", 60)
	sender := &recordingSender{}

	authCfg := config.AuthConfig{JWTSecret: "suite-secret", AccessTokenTTLMinutes: 60, OTPTTLMinutes: 15, BcryptCost: 4}
	adminCfg := config.AdminConfig{Email: "admin@example.com", Password: "admin-secret"}

	authService := service.NewAuthService(service.AuthDependencies{
		Users:  users,
		OTPs:   otps,
		Tokens: tokens,
		Sender: sender,
		Auth:   authCfg,
		Admin:  adminCfg,
		Logger: logger,
	})
	Expect(authService.EnsureAdmin(context.Background())).To(Succeed())

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   tickets,
		MessageRepo:  messages,
		UserRepo:     users,
		ActivityRepo: activity,
		Dispatcher:   dispatcher,
	})
	notificationService := service.NewNotificationService(notifications, dispatcher, logger)
	worker.StartNotificationWorker(notificationService)

	reportService := service.NewReportService(tickets, nil, config.ReportConfig{SampleUnitFallback: true}, logger)

	store, err := storage.NewLocalStore(GinkgoT().TempDir(), 1<<20)
	Expect(err).NotTo(HaveOccurred())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-test", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService, service.NewUserService(users)),
		Tickets:        handlers.NewTicketsHandler(ticketService, store),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService, reportService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
		UploadDir:      store.Dir(),
	})

	return &testEnv{app: app, sender: sender}
}

func (e *testEnv) do(method, path, token string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decodeJSON(resp *http.Response, out any) {
	defer resp.Body.Close() //nolint:errcheck
	Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
}

func (e *testEnv) registerAndLogin(name, email, password string) string {
	resp := e.do(http.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": password,
		"unit":     string(domain.UnitNetwork),
	})
	Expect(resp.StatusCode).To(Equal(http.StatusCreated))

	resp = e.do(http.MethodPost, "/api/auth/verify-account", "", fiber.Map{
		"email": email,
		"code":  e.sender.lastCode,
	})
	Expect(resp.StatusCode).To(Equal(http.StatusOK))

	return e.login(email, password, "/api/auth/login")
}

func (e *testEnv) login(email, password, path string) string {
	resp := e.do(http.MethodPost, path, "", fiber.Map{"email": email, "password": password})
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
	var body struct {
		Token string `json:"token"`
	}
	decodeJSON(resp, &body)
	Expect(body.Token).NotTo(BeEmpty())
	return body.Token
}

func (e *testEnv) createTicket(token, subject string) string {
	resp := e.do(http.MethodPost, "/api/tickets", token, fiber.Map{
		"subject":       subject,
		"description":   "something is broken",
		"type":          "INCIDENT",
		"assigned_unit": string(domain.UnitNetwork),
	})
	Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	var ticket struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(resp, &ticket)
	Expect(ticket.Status).To(Equal("OPEN"))
	return ticket.ID
}

var _ = Describe("Helpdesk API", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
	})

	Describe("health", func() {
		It("reports liveness unconditionally", func() {
			resp := env.do(http.MethodGet, "/health/live", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("reports not ready when dependencies are unconfigured", func() {
			resp := env.do(http.MethodGet, "/health/ready", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("authentication", func() {
		It("rejects requests without a token", func() {
			resp := env.do(http.MethodGet, "/api/tickets", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("rejects admin routes for regular users", func() {
			userToken := env.registerAndLogin("Dana", "dana@example.com", "correct-horse")
			resp := env.do(http.MethodGet, "/api/admin/tickets", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("returns the profile on /api/auth/me", func() {
			userToken := env.registerAndLogin("Dana", "dana@example.com", "correct-horse")
			resp := env.do(http.MethodGet, "/api/auth/me", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var profile struct {
				Email string `json:"email"`
				Role  string `json:"role"`
			}
			decodeJSON(resp, &profile)
			Expect(profile.Email).To(Equal("dana@example.com"))
			Expect(profile.Role).To(Equal("USER"))
		})
	})

	Describe("ticket lifecycle", func() {
		var userToken, adminToken string

		BeforeEach(func() {
			userToken = env.registerAndLogin("Dana", "dana@example.com", "correct-horse")
			adminToken = env.login("admin@example.com", "admin-secret", "/api/auth/admin-login")
		})

		It("runs the full support flow", func() {
			ticketID := env.createTicket(userToken, "VPN keeps dropping")

			By("flipping to IN_PROGRESS on the first admin reply")
			resp := env.do(http.MethodPost, "/api/admin/tickets/"+ticketID+"/reply", adminToken,
				fiber.Map{"body": "Taking a look now."})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var reply struct {
				Ticket struct {
					Status string `json:"status"`
				} `json:"ticket"`
			}
			decodeJSON(resp, &reply)
			Expect(reply.Ticket.Status).To(Equal("IN_PROGRESS"))

			By("notifying the owner")
			resp = env.do(http.MethodGet, "/api/notifications", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var inbox []struct {
				Type string `json:"type"`
			}
			decodeJSON(resp, &inbox)
			types := make([]string, 0, len(inbox))
			for _, n := range inbox {
				types = append(types, n.Type)
			}
			Expect(types).To(ContainElements("ADMIN_OPENED", "ADMIN_REPLY"))

			By("resolving as admin")
			resp = env.do(http.MethodPatch, "/api/admin/tickets/"+ticketID+"/resolve", adminToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var resolved struct {
				Status string `json:"status"`
			}
			decodeJSON(resp, &resolved)
			Expect(resolved.Status).To(Equal("RESOLVED"))

			By("refusing to close a resolved ticket")
			resp = env.do(http.MethodPatch, "/api/tickets/"+ticketID+"/close", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("notifies a directly assigned user about the new ticket", func() {
			assigneeToken := env.registerAndLogin("Eli", "eli@example.com", "another-horse")
			resp := env.do(http.MethodGet, "/api/auth/me", assigneeToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var assignee struct {
				ID string `json:"id"`
			}
			decodeJSON(resp, &assignee)

			resp = env.do(http.MethodPost, "/api/tickets", userToken, fiber.Map{
				"subject":       "Switch port dead",
				"description":   "no link on port 12",
				"type":          "INCIDENT",
				"assigned_unit": string(domain.UnitNetwork),
				"assignee_id":   assignee.ID,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var ticket struct {
				AssigneeID *string `json:"assignee_id"`
			}
			decodeJSON(resp, &ticket)
			Expect(ticket.AssigneeID).To(HaveValue(Equal(assignee.ID)))

			resp = env.do(http.MethodGet, "/api/notifications", assigneeToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var inbox []struct {
				Type string `json:"type"`
			}
			decodeJSON(resp, &inbox)
			types := make([]string, 0, len(inbox))
			for _, n := range inbox {
				types = append(types, n.Type)
			}
			Expect(types).To(ContainElement("NEW_TICKET"))
		})

		It("closes and reopens tickets from the allowed states only", func() {
			ticketID := env.createTicket(userToken, "Monitor flickers")

			resp := env.do(http.MethodPatch, "/api/tickets/"+ticketID+"/reopen", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))

			resp = env.do(http.MethodPatch, "/api/tickets/"+ticketID+"/close", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = env.do(http.MethodPatch, "/api/tickets/"+ticketID+"/reopen", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var reopened struct {
				Status string `json:"status"`
			}
			decodeJSON(resp, &reopened)
			Expect(reopened.Status).To(Equal("REOPENED"))
		})

		It("edits ticket fields through PUT", func() {
			ticketID := env.createTicket(userToken, "Old subject")

			resp := env.do(http.MethodPut, "/api/tickets/"+ticketID, userToken, fiber.Map{
				"subject":  "New subject",
				"priority": "HIGH",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var updated struct {
				Subject  string `json:"subject"`
				Priority string `json:"priority"`
				Type     string `json:"type"`
			}
			decodeJSON(resp, &updated)
			Expect(updated.Subject).To(Equal("New subject"))
			Expect(updated.Priority).To(Equal("HIGH"))
			Expect(updated.Type).To(Equal("INCIDENT"))
		})

		It("hides other users' tickets", func() {
			ticketID := env.createTicket(userToken, "Printer jam")
			otherToken := env.registerAndLogin("Eve", "eve@example.com", "other-password")

			resp := env.do(http.MethodGet, "/api/tickets/"+ticketID, otherToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp = env.do(http.MethodGet, "/api/tickets", otherToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var list []any
			decodeJSON(resp, &list)
			Expect(list).To(BeEmpty())
		})

		It("returns 404 for unknown tickets", func() {
			resp := env.do(http.MethodGet, "/api/tickets/00000000-0000-0000-0000-000000000000", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			decodeJSON(resp, &body)
			Expect(body.Error.Code).To(Equal("NOT_FOUND"))
		})
	})

	Describe("reporting", func() {
		var userToken, adminToken string

		BeforeEach(func() {
			userToken = env.registerAndLogin("Dana", "dana@example.com", "correct-horse")
			adminToken = env.login("admin@example.com", "admin-secret", "/api/auth/admin-login")
			env.createTicket(userToken, "Server down")
		})

		It("serves the aggregation endpoints", func() {
			for _, path := range []string{
				"/api/admin/tickets/status-distribution",
				"/api/admin/tickets/type-distribution",
				"/api/admin/tickets/priority-distribution",
				"/api/admin/tickets/tickets-by-unit",
				"/api/admin/tickets/avg-resolution-time",
				"/api/admin/tickets/assignee-performance",
				"/api/admin/tickets/trends",
				"/api/admin/tickets/recent",
				"/api/admin/tickets/activity-logs",
			} {
				resp := env.do(http.MethodGet, path, adminToken, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK), path)
			}
		})

		It("counts the ticket in the status distribution", func() {
			resp := env.do(http.MethodGet, "/api/admin/tickets/status-distribution", adminToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var buckets []struct {
				Label string `json:"label"`
				Count int    `json:"count"`
			}
			decodeJSON(resp, &buckets)
			total := 0
			for _, b := range buckets {
				total += b.Count
			}
			Expect(total).To(Equal(1))
		})

		It("renders the PDF report", func() {
			resp := env.do(http.MethodGet, "/api/admin/tickets/report/download", adminToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			payload, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(bytes.HasPrefix(payload, []byte("%PDF"))).To(BeTrue())
		})

		It("renders chart images", func() {
			resp := env.do(http.MethodGet, "/api/admin/tickets/report/chart?kind=status", adminToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
		})
	})

	Describe("notifications", func() {
		It("marks notifications read", func() {
			userToken := env.registerAndLogin("Dana", "dana@example.com", "correct-horse")
			adminToken := env.login("admin@example.com", "admin-secret", "/api/auth/admin-login")
			ticketID := env.createTicket(userToken, "Laptop battery")

			resp := env.do(http.MethodPost, "/api/admin/tickets/"+ticketID+"/reply", adminToken,
				fiber.Map{"body": "On it."})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			resp = env.do(http.MethodPatch, "/api/notifications/read-all", userToken, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = env.do(http.MethodGet, "/api/notifications", userToken, nil)
			var inbox []struct {
				IsRead bool `json:"is_read"`
			}
			decodeJSON(resp, &inbox)
			Expect(inbox).NotTo(BeEmpty())
			for _, n := range inbox {
				Expect(n.IsRead).To(BeTrue())
			}
		})
	})
})
