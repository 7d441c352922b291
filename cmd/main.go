package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NightreignMatch/config"
	"NightreignMatch/internal/auth"
	"NightreignMatch/internal/lobby"
	"NightreignMatch/internal/matchmaker"
	"NightreignMatch/internal/metrics"
	"NightreignMatch/internal/middleware"
	"NightreignMatch/internal/storage"
	"NightreignMatch/internal/utils"
	"NightreignMatch/internal/voice"
	"NightreignMatch/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := config.Load(); err != nil {
		utils.Log.Fatal("config load failed", "err", err)
	}
	utils.Init(config.C.Log.Level)

	//-------------------------------------------------------
	// 1. 成队存档（memory / redis / postgres）
	//-------------------------------------------------------
	repo, err := openArchive(config.C.Matchmaker.Archive)
	if err != nil {
		utils.Log.Fatal("archive init failed", "archive", config.C.Matchmaker.Archive, "err", err)
	}
	defer storage.CloseRedis()
	defer storage.ClosePostgres()

	//-------------------------------------------------------
	// 2. 初始化 Gin + CORS
	//-------------------------------------------------------
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "x-admin-key"},
	}))

	//-------------------------------------------------------
	// 3. 初始化 Hub（必须最先启动）
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Close()

	//-------------------------------------------------------
	// 4. 计数器 / 语音房间
	//-------------------------------------------------------
	mtr := metrics.New(prometheus.NewRegistry(), config.C.Metrics.AdminKey)

	var rooms matchmaker.RoomProvisioner
	if config.C.Voice.Enabled {
		vp := voice.NewProvisioner(voice.Config{
			Secret: config.C.Voice.Secret,
			Issuer: config.C.Voice.Issuer,
			Domain: config.C.Voice.Domain,
			TTL:    config.C.Voice.TTL,
		})
		defer vp.Close()
		rooms = vp
	}

	//-------------------------------------------------------
	// 5. 初始化匹配系统 Matchmaker + Lobby
	//-------------------------------------------------------
	catalog := matchmaker.DefaultCatalog()
	if len(config.C.Matchmaker.Compositions) > 0 {
		if catalog, err = matchmaker.ParseCatalog(config.C.Matchmaker.Compositions); err != nil {
			utils.Log.Fatal("invalid composition catalog", "err", err)
		}
	}
	pw := config.C.Matchmaker.Password
	seed := time.Now().UnixNano()

	lb := lobby.NewLobby(hub)
	svc := matchmaker.NewService(matchmaker.Options{
		Catalog: catalog,
		Bosses:  config.C.Matchmaker.Bosses,
		Issuer: matchmaker.NewSessionIssuer(matchmaker.IssuerOptions{
			Length:      pw.Length,
			Alphabet:    pw.Alphabet,
			Retention:   pw.Retention,
			MaxAttempts: pw.MaxAttempts,
			Rand:        rand.New(rand.NewSource(seed ^ 0x5eed)),
		}),
		Rand:             rand.New(rand.NewSource(seed)),
		Delivery:         lb,
		Repo:             repo,
		Voice:            rooms,
		Metrics:          mtr,
		ProvisionTimeout: config.C.Matchmaker.ProvisionTimeout,
	})
	lb.Attach(svc)
	hub.OnIncoming = lb.HandlePlayerMessage
	defer svc.Wait()

	//-------------------------------------------------------
	// 6. 公共路由
	//-------------------------------------------------------
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"waitingPlayers": svc.Waiting(),
			"timestamp":      time.Now().UTC(),
		})
	})
	r.POST("/metrics/visit", mtr.Visit)
	r.GET("/metrics", mtr.Summary)
	r.GET("/metrics/prometheus", mtr.Prometheus())

	authGroup := r.Group("/auth")
	{
		ah := auth.NewHandler(config.C.JWT.Secret, config.C.JWT.TTL)
		authGroup.POST("/guest", ah.Guest)
	}

	//-------------------------------------------------------
	// 7. WebSocket + 匹配路由
	// 配置了 jwt.secret 时需要 JWT；否则用 ?identity= / body.identity
	//-------------------------------------------------------
	api := r.Group("/")
	if config.C.JWT.Secret != "" {
		api.Use(middleware.JwtAuthMiddleware([]byte(config.C.JWT.Secret)))
	} else {
		utils.Log.Warn("jwt.secret is empty, identities are taken from the request unverified")
	}
	{
		api.GET("/ws", websocket.ServeWS(hub))

		mh := matchmaker.NewHandler(svc)
		api.POST("/match/join", mh.Join)
		api.POST("/match/cancel", mh.Cancel)
		api.GET("/match/:password", mh.Lookup)
	}

	//-------------------------------------------------------
	// 8. 启动服务器
	//-------------------------------------------------------
	srv := &http.Server{Addr: config.C.Server.Port, Handler: r}
	go func() {
		utils.Log.Info("Server running", "addr", config.C.Server.Port, "archive", config.C.Matchmaker.Archive)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.Fatal("server error", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	utils.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Log.Error("server shutdown error", "err", err)
	}
}

func openArchive(kind string) (matchmaker.Repo, error) {
	switch kind {
	case "redis":
		if err := storage.InitRedis(config.C.Redis.Addr, config.C.Redis.Password, config.C.Redis.DB); err != nil {
			return nil, err
		}
		return matchmaker.NewRedisRepo(storage.Rdb), nil
	case "postgres":
		if err := storage.InitPostgres(config.C.Database.DSN); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return matchmaker.NewPostgresRepo(ctx, storage.DB)
	case "", "memory":
		return matchmaker.NewMemoryRepo(), nil
	}
	return nil, errors.New("unknown archive " + kind)
}
