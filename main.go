// Command arenanav runs the arena navigator.
//
// Commands:
//  1. "serve": HTTP server exposing the REST API, WebSocket events and an /mcp endpoint
//  2. "mcp": MCP stdio server; reuses a running API or starts an internal one
//  3. "robot": hardware mission over the TCP robot link
//  4. "simulate": offline mission against a virtual robot on an arena's reference map
//
// Global flags select the arena directory, the session directory and debug
// logging. Every flag falls back to an environment variable, and a .env file
// in the working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/arenanav/api"
	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/mission"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/service"
	"github.com/wricardo/mcp-training/arenanav/nav/session"
	"github.com/wricardo/mcp-training/arenanav/transport/comm"
	"github.com/wricardo/mcp-training/arenanav/transport/mcp"
	"github.com/wricardo/mcp-training/arenanav/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Arena Navigator"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", envErr)
	}

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand declares flags and commands
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "arenanav",
		Usage:   "explore grid arenas and drive the fastest path",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "arena-dir",
				Value:   "arenas",
				Usage:   "directory containing arena definitions",
				Sources: cli.EnvVars("ARENA_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "directory for persisted sessions",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
					&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
					&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
				},
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "REST API to proxy when it is running", Sources: cli.EnvVars("API_URL")},
				},
				Action: runStdioMCP,
			},
			{
				Name:  "robot",
				Usage: "run a hardware mission over the robot link",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: "192.168.2.1:8080", Usage: "robot link address", Sources: cli.EnvVars("ROBOT_ADDR")},
					&cli.StringFlag{Name: "arena", Value: "default", Usage: "arena defining dimensions and limits"},
					&cli.BoolFlag{Name: "wait-commands", Usage: "wait for EX_START and FP_START before each phase"},
					&cli.DurationFlag{Name: "dial-timeout", Value: 10 * time.Second, Usage: "robot link dial timeout"},
				},
				Action: runRobot,
			},
			{
				Name:  "simulate",
				Usage: "run a mission against a virtual robot on an arena's reference map",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "arena", Value: "sample", Usage: "arena to simulate"},
					&cli.StringFlag{Name: "waypoint", Usage: "waypoint as \"row,col\" (defaults to the arena waypoint)"},
					&cli.StringFlag{Name: "map", Usage: "legacy map file replacing the arena layout"},
				},
				Action: runSimulate,
			},
		},
	}
}

// newLogger builds a production logger, or a development logger in debug
// mode. Both write to stderr so stdout stays free for MCP and reports.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// services bundles what the server commands share
type services struct {
	nav         service.NavigationService
	sessions    *session.Manager
	persistence *session.FilePersistence
	hub         *websocket.Hub
}

// initializeServices wires arena, session and navigation layers
func initializeServices(arenaDir, sessionsDir string, logger *zap.Logger) (*services, error) {
	arenas, err := config.NewManager(arenaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create arena manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(sessionsDir, arenas)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessions := session.NewManager(
		session.WithPersistence(persistence),
		session.WithLogger(logger.Named("session")),
	)
	if err := sessions.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	hub := websocket.NewHub(websocket.WithLogger(logger.Named("ws")))
	nav := service.NewNavigationService(sessions, arenas,
		service.WithLogger(logger.Named("service")),
		service.WithNotifier(hub),
	)

	return &services{nav: nav, sessions: sessions, persistence: persistence, hub: hub}, nil
}

func setup(cmd *cli.Command) (*zap.Logger, *services, error) {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return nil, nil, err
	}
	svcs, err := initializeServices(cmd.String("arena-dir"), cmd.String("sessions-dir"), logger)
	if err != nil {
		return nil, nil, err
	}
	return logger, svcs, nil
}

// newHTTPHandler mounts the REST API, WebSocket and an /mcp endpoint
// proxying to baseURL
func newHTTPHandler(svcs *services, baseURL string, logger *zap.Logger) http.Handler {
	apiServer := api.NewServer(svcs.nav, svcs.hub, api.WithLogger(logger.Named("api")))
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mainRouter
}

// runServe runs the HTTP server, the WebSocket hub, session housekeeping and
// an optional ngrok tunnel until the context ends
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger, svcs, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
	handler := newHTTPHandler(svcs, "http://"+addr, logger)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svcs.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("rest", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?sessionId=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		if err := svcs.nav.Close(); err != nil {
			logger.Warn("navigation service shutdown error", zap.Error(err))
		}
		return svcs.sessions.SaveAllSessions()
	})

	g.Go(func() error {
		sessionCleanupRoutine(gctx, svcs.sessions, logger)
		return nil
	})

	g.Go(func() error {
		filesystemSyncRoutine(gctx, svcs.sessions, svcs.persistence, logger)
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			runNgrok(gctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler, logger)
			return nil
		})
	}

	return g.Wait()
}

// runNgrok serves handler through an ngrok tunnel. Tunnel failures are
// logged and leave the local server running.
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler, logger *zap.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("rest", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?sessionId=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"))

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within a day
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory once their files are
// deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := pruneOrphanedSessions(manager, persistence, logger); n > 0 {
				logger.Info("filesystem sync pruned orphaned sessions", zap.Int("pruned", n))
			}
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) || sess.Exploring() {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logger.Debug("pruned session from memory (file deleted)", zap.String("session", sess.ID))
		}
	}
	return pruned
}

// runStdioMCP serves MCP over stdio. It proxies to a running API when one
// answers at --api-url, otherwise it starts an internal API on a loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger, svcs, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err == nil {
		resp.Body.Close()
	}
	if err == nil && resp.StatusCode < 500 {
		logger.Info("using external API server", zap.String("url", baseURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go svcs.hub.Run(runCtx)

		httpServer := &http.Server{Handler: api.NewServer(svcs.nav, svcs.hub, api.WithLogger(logger.Named("api")))}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer func() {
			httpServer.Close()
			svcs.nav.Close()
		}()
		logger.Info("internal API server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready")
	return server.ServeStdio(mcpClient.GetMCPServer())
}

// runRobot drives the physical robot through one mission
func runRobot(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	arena, err := loadArena(cmd.String("arena-dir"), cmd.String("arena"))
	if err != nil {
		return err
	}
	m, err := arena.NewMap()
	if err != nil {
		return err
	}

	link, err := comm.Dial(ctx, cmd.String("addr"),
		comm.WithLogger(logger.Named("comm")),
		comm.WithDialTimeout(cmd.Duration("dial-timeout")))
	if err != nil {
		return err
	}
	defer link.Close()

	bot := robot.New(robot.Pose{Row: arena.Start.Row, Col: arena.Start.Col, Direction: robot.North}, robot.DefaultSensors(), true)
	run := mission.New(link, m, bot, mission.Config{
		Explore:         arena.Exploration,
		TurnPenalty:     arena.TurnPenalty,
		WaitForCommands: cmd.Bool("wait-commands"),
	}, mission.WithLogger(logger.Named("mission")))

	report, err := run.Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, report)
}

// runSimulate runs the hardware mission against a virtual robot
func runSimulate(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	arena, err := loadArena(cmd.String("arena-dir"), cmd.String("arena"))
	if err != nil {
		return err
	}

	if path := cmd.String("map"); path != "" {
		arena, err = withMapFile(arena, path)
		if err != nil {
			return err
		}
	}

	waypoint := cmd.String("waypoint")
	if waypoint == "" {
		if arena.Waypoint == nil {
			return fmt.Errorf("arena %s has no waypoint; pass --waypoint row,col", arena.Name)
		}
		waypoint = fmt.Sprintf("%d %d", arena.Waypoint.Row, arena.Waypoint.Col)
	}

	report, err := simulate(ctx, arena, waypoint, logger)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, report)
}

// simulate plays a full mission on the arena's reference map
func simulate(ctx context.Context, arena *config.Arena, waypoint string, logger *zap.Logger) (mission.Report, error) {
	reference, err := arena.Reference()
	if err != nil {
		return mission.Report{}, err
	}
	m, err := arena.NewMap()
	if err != nil {
		return mission.Report{}, err
	}

	home := robot.Pose{Row: arena.Start.Row, Col: arena.Start.Col, Direction: robot.North}
	bot := robot.New(home, robot.DefaultSensors(), false)
	virtual := mission.NewVirtualRobot(reference, home, bot.Sensors(), waypoint)

	run := mission.New(virtual, m, bot, mission.Config{
		Explore:     arena.Exploration,
		TurnPenalty: arena.TurnPenalty,
	}, mission.WithLogger(logger.Named("mission")))
	return run.Run(ctx)
}

// withMapFile returns a copy of arena whose reference comes from path
func withMapFile(arena *config.Arena, path string) (*config.Arena, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	custom := *arena
	custom.MapFile = abs
	custom.Layout = nil
	if err := custom.Validate(); err != nil {
		return nil, err
	}
	return &custom, nil
}

func loadArena(dir, name string) (*config.Arena, error) {
	arenas, err := config.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create arena manager: %w", err)
	}
	return arenas.LoadArena(name)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
