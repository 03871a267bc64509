package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/dispute-case-api/api"
	"github.com/linesmerrill/dispute-case-api/config"
	"github.com/linesmerrill/dispute-case-api/databases"
	"github.com/linesmerrill/dispute-case-api/databases/memory"
	"github.com/linesmerrill/dispute-case-api/databases/postgres"
	"github.com/linesmerrill/dispute-case-api/documents"
	"github.com/linesmerrill/dispute-case-api/lifecycle"
	"github.com/linesmerrill/dispute-case-api/models"
	"github.com/linesmerrill/dispute-case-api/notify"
)

// notifyTimeout bounds the delivery of a single event to every sink
const notifyTimeout = 30 * time.Second

// App stores the router and the case lifecycle wiring, so it can be reused
type App struct {
	Router     *mux.Router
	Config     config.Config
	Controller *lifecycle.Controller
	Hub        *notify.Hub

	store      databases.Store
	dispatcher *notify.Dispatcher
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	auth := api.NewAuth(a.Config.JWTSecret)
	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = api.QueryTimeout
	}
	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(api.TimeoutMiddleware(timeout)(h))
	}

	r := mux.NewRouter()
	r.Use(api.RequestLogger)

	c := Case{C: a.Controller}
	s := Session{C: a.Controller}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if a.Hub != nil {
		r.Handle("/ws/cases", auth.Middleware(a.Hub)).Methods("GET")
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.Handle("/cases", protect(c.CreateCaseHandler)).Methods("POST")
	v1.Handle("/cases/{case_id}", protect(c.CaseByIDHandler)).Methods("GET")
	v1.Handle("/cases/{case_id}/stages/{stage}", protect(c.ScheduleStageHandler)).Methods("POST")
	v1.Handle("/cases/{case_id}/settlement", protect(c.SettleHandler)).Methods("POST")
	v1.Handle("/cases/{case_id}/withdraw", protect(c.WithdrawHandler)).Methods("POST")
	v1.Handle("/cases/{case_id}/refer", protect(c.ReferHandler)).Methods("POST")

	v1.Handle("/sessions/{session_id}/minutes", protect(s.RecordMinutesHandler)).Methods("POST")
	v1.Handle("/sessions/{session_id}/reschedule", protect(s.RescheduleHandler)).Methods("POST")
	v1.Handle("/sessions/{session_id}", protect(s.PurgeSessionHandler)).Methods("DELETE")
	v1.Handle("/reschedules/{reschedule_id}", protect(s.DeleteRescheduleHandler)).Methods("DELETE")
	v1.Handle("/availability/{date}", protect(s.AvailabilityHandler)).Methods("GET")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize(ctx context.Context) error {
	store, directory, err := a.openStore(ctx)
	if err != nil {
		// if we fail to reach the database, then kill the pod
		zap.S().Errorw("failed to open store", "driver", a.Config.StoreDriver, "error", err)
		return err
	}
	a.store = store
	zap.S().Infow("dispute-case-api has connected to the database", "driver", a.Config.StoreDriver)

	a.Hub = notify.NewHub()
	sinks := []notify.Sink{a.Hub}
	if a.Config.SendgridAPIKey != "" && directory != nil {
		sinks = append(sinks, notify.NewMailer(a.Config.SendgridAPIKey, a.Config.MailFrom, directory))
	} else {
		zap.S().Warn("party email notices are disabled")
	}
	a.dispatcher = notify.NewDispatcher(notifyTimeout, sinks...)

	docs, err := a.documentStorage()
	if err != nil {
		return err
	}

	a.Controller = lifecycle.New(store)
	a.Controller.Notifier = a.dispatcher
	a.Controller.Documents = docs
	a.Controller.Location = a.Config.Location
	a.Controller.Rules.Capacity = a.Config.DailyCapacity
	a.Controller.Rules.MinSpacing = a.Config.MinSpacingMinutes
	a.Controller.ElapsedCap = a.Config.ElapsedCapDays

	// initialize api router
	a.Router = a.New()
	return nil
}

func (a *App) openStore(ctx context.Context) (databases.Store, notify.Directory, error) {
	switch a.Config.StoreDriver {
	case config.DriverMemory:
		zap.S().Warn("using the in-memory store, nothing survives a restart")
		return memory.New(), nil, nil
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, a.Config.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, postgres.NewDirectory(pg.DB()), nil
	default:
		client, err := databases.NewClient(ctx, &a.Config)
		if err != nil {
			return nil, nil, err
		}
		ms, err := databases.NewMongoStore(ctx, &a.Config, client)
		if err != nil {
			return nil, nil, err
		}
		return ms, databases.NewResidentDirectory(ms.Database()), nil
	}
}

func (a *App) documentStorage() (documents.Storage, error) {
	if a.Config.CloudinaryURL != "" {
		return documents.NewCloudinary(a.Config.CloudinaryURL, "session-minutes")
	}
	return documents.NewLocal(a.Config.DocumentDir), nil
}

// Close waits for pending notifications and releases the store
func (a *App) Close(ctx context.Context) error {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.store == nil {
		return nil
	}
	return a.store.Close(ctx)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
