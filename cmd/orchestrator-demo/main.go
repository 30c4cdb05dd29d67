// Command orchestrator-demo wires every core component together and runs
// one scripted turn: scaffold the project, build it, publish a preview,
// and watch the turn converge.
package main

import (
	"context"
	"fmt"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"goa.design/clue/log"

	"github.com/codi-platform/orchestrator-core/agentkit"
	"github.com/codi-platform/orchestrator-core/artifact"
	"github.com/codi-platform/orchestrator-core/config"
	"github.com/codi-platform/orchestrator-core/persistence"
	mongopersistence "github.com/codi-platform/orchestrator-core/persistence/mongo"
	"github.com/codi-platform/orchestrator-core/session"
	"github.com/codi-platform/orchestrator-core/signal"
	"github.com/codi-platform/orchestrator-core/task"
	"github.com/codi-platform/orchestrator-core/telemetry"
	"github.com/codi-platform/orchestrator-core/workflow"
)

const (
	projectID = "demo-project"
	userID    = "demo-user"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("orchestrator.yaml")
	if err != nil {
		panic(err)
	}

	ctx = bootstrapLogging(ctx, cfg.Telemetry)
	logger, metrics, tracer := buildTelemetry(cfg.Telemetry)

	metadataPort, sessionMirror, persistencePort := connectMongo(ctx, cfg.Mongo)

	engine := signal.New(signal.Options{HistorySize: cfg.Signals.HistorySize})
	sessions := session.New(session.Options{
		MaxMessages: cfg.Sessions.MaxMessages,
		TTL:         cfg.Sessions.TTL(),
		Logger:      logger,
		Mirror:      sessionMirror,
	})
	tasks := task.New(task.Options{
		OutputTruncateChars: cfg.Tasks.OutputTruncateChars,
		Logger:              logger,
		Metrics:             metrics,
		Tracer:              tracer,
	})
	store := artifact.New(artifact.Options{ProjectID: projectID, Logger: logger, Metadata: metadataPort})
	delegate := agentkit.NewDelegate(task.NewDelegateAdapter(tasks), "workflow_executor")

	registerScaffolder(engine, tasks, delegate, store)
	registerBuilder(engine, tasks, delegate, store)
	registerPreviewer(engine, tasks, delegate, store)

	executor := workflow.New(workflow.Options{
		Sessions:      sessions,
		Engine:        engine,
		NewStore:      func(id, folder string) *artifact.Store { return store },
		Persistence:   persistencePort,
		Logger:        logger,
		Metrics:       metrics,
		Tracer:        tracer,
		Timeout:       10 * time.Second,
		PollInterval:  cfg.Attractors.PollInterval(),
		MaxIterations: cfg.Attractors.MaxIterations,
	})

	result, err := executor.ExecuteTurn(ctx, workflow.TurnInput{
		ProjectID:   projectID,
		UserID:      userID,
		UserMessage: "scaffold a new web app, build it, and give me a preview",
	})
	if err != nil {
		panic(err)
	}

	fmt.Println("session:", result.SessionID)
	fmt.Println("converged:", result.AllSatisfied)
	fmt.Println("summary:", result.Summary)
}

// bootstrapLogging configures the clue logging format on ctx the same way
// every clue-based service does, when the clue provider is selected. The
// noop provider needs no context setup.
func bootstrapLogging(ctx context.Context, cfg config.TelemetryConfig) context.Context {
	if cfg.Provider != "clue" {
		return ctx
	}
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	return log.Context(ctx, log.WithFormat(format))
}

// buildTelemetry returns the Logger/Metrics/Tracer trio every component
// accepts, switching on the configured provider. "clue" backs all three
// with goa.design/clue/log and the global OTEL meter/tracer providers;
// anything else (including unset) stays no-op.
func buildTelemetry(cfg config.TelemetryConfig) (telemetry.Logger, telemetry.Metrics, telemetry.Tracer) {
	if cfg.Provider != "clue" {
		return telemetry.NewNoopLogger(), telemetry.NewNoopMetrics(), telemetry.NewNoopTracer()
	}
	return telemetry.NewClueLogger(), telemetry.NewClueMetrics(), telemetry.NewClueTracer()
}

// connectMongo dials Mongo and constructs every Mongo-backed adapter this
// runtime offers, when cfg.URI is set. An empty URI leaves all three nil,
// and every consumer treats a nil port as "stay in-process only".
func connectMongo(ctx context.Context, cfg config.MongoConfig) (artifact.MetadataPort, session.Mirror, persistence.Port) {
	if cfg.URI == "" {
		return nil, nil, nil
	}
	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		panic(err)
	}
	metadataPort, err := artifact.NewMongoMetadataPort(artifact.MongoOptions{Client: client, Database: cfg.Database})
	if err != nil {
		panic(err)
	}
	sessionMirror, err := session.NewMongoMirror(session.MongoOptions{Client: client, Database: cfg.Database})
	if err != nil {
		panic(err)
	}
	persistencePort, err := mongopersistence.New(mongopersistence.Options{Client: client, Database: cfg.Database})
	if err != nil {
		panic(err)
	}
	return metadataPort, sessionMirror, persistencePort
}

// registerScaffolder reacts to needs_scaffold by producing file artifacts,
// matching the delegation-through-task-manager pattern: the signal handler
// just launches a background task, it does not do the work inline.
func registerScaffolder(engine *signal.Engine, tasks *task.Manager, delegate *agentkit.Delegate, store *artifact.Store) {
	tasks.RegisterWorker("scaffolder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		report("write_files")
		if _, err := store.Produce(ctx, artifact.TypeFile, "scaffolder", "package main\n\nfunc main() {}\n", map[string]any{
			artifact.MetaFilePath: "main.go",
			artifact.MetaOperation: artifact.OperationCreate,
		}); err != nil {
			return "", err
		}
		return "scaffold complete", nil
	})
	agentkit.RegisterSignalHandlers(engine, "scaffolder", delegatingSubscriber{
		signals:  []signal.Signal{signal.NeedsScaffold},
		agent:    "scaffolder",
		delegate: delegate,
	}, 10)
}

func registerBuilder(engine *signal.Engine, tasks *task.Manager, delegate *agentkit.Delegate, store *artifact.Store) {
	tasks.RegisterWorker("builder", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		report("run_build")
		if _, err := store.Produce(ctx, artifact.TypeBuild, "builder", "build ok", map[string]any{
			artifact.MetaSuccess:     true,
			artifact.MetaTestsPassed: true,
		}); err != nil {
			return "", err
		}
		return "build succeeded", nil
	})
	agentkit.RegisterSignalHandlers(engine, "builder", delegatingSubscriber{
		signals:  []signal.Signal{signal.NeedsBuild},
		agent:    "builder",
		delegate: delegate,
	}, 20)
}

func registerPreviewer(engine *signal.Engine, tasks *task.Manager, delegate *agentkit.Delegate, store *artifact.Store) {
	tasks.RegisterWorker("previewer", func(ctx context.Context, t task.BackgroundTask, report func(string)) (string, error) {
		report("publish_preview")
		if _, err := store.Produce(ctx, artifact.TypePreview, "previewer", "https://demo-project.preview.local", nil); err != nil {
			return "", err
		}
		return "preview published", nil
	})
	agentkit.RegisterSignalHandlers(engine, "previewer", delegatingSubscriber{
		signals:  []signal.Signal{signal.NeedsPreview},
		agent:    "previewer",
		delegate: delegate,
	}, 10)
}

// delegatingSubscriber dispatches a background task for every signal it's
// subscribed to, using the shared Delegate rather than the task manager
// directly, and does not wait for the result (fire-and-forget for this demo;
// a real worker would Invoke when it needs the outcome inline).
type delegatingSubscriber struct {
	signals  []signal.Signal
	agent    string
	delegate *agentkit.Delegate
}

func (d delegatingSubscriber) Subscribes() []signal.Signal { return d.signals }

func (d delegatingSubscriber) HandleSignal(ctx context.Context, event signal.Event) error {
	_, err := d.delegate.Dispatch(ctx, agentkit.LaunchInput{
		Agent:       d.agent,
		Description: string(event.Signal),
		Prompt:      string(event.Signal),
	})
	return err
}
