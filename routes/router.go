package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voting-api/handlers"
)

// Dependencies 路由需要的处理器
type Dependencies struct {
	Auth      *handlers.AuthHandler
	Polls     *handlers.PollHandler
	Health    *handlers.HealthHandler
	Subscribe gin.HandlerFunc
	Tokens    handlers.TokenVerifier
	Logger    *zap.Logger
}

// Server 是HTTP服务器的封装
type Server struct {
	*http.Server
	l *zap.Logger
}

// SetupRouter 设置和配置Gin路由
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestLogger(deps.Logger))

	// 配置CORS中间件
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/", deps.Health.Root)

	requireAuth := handlers.RequireAuth(deps.Tokens, deps.Logger)

	api := router.Group("/api")
	{
		api.GET("/health", deps.Health.HealthCheck)
		api.GET("/status", deps.Health.SystemStatus)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", deps.Auth.Register)
			authGroup.POST("/login", deps.Auth.Login)
		}

		polls := api.Group("/polls")
		{
			polls.POST("", requireAuth, deps.Polls.CreatePoll)
			polls.GET("", deps.Polls.ListPolls)
			polls.GET("/:id", deps.Polls.GetPoll)
			polls.POST("/:id/vote", requireAuth, deps.Polls.Vote)

			// 实时更新端点
			if deps.Subscribe != nil {
				polls.GET("/:id/ws", deps.Subscribe)
			}
		}
	}

	return router
}

// NewServer 创建HTTP服务器
func NewServer(port string, handler http.Handler, l *zap.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		l: l,
	}
}

// Start 在单独的goroutine中启动服务器，监听失败时写入返回的通道
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.l.Info("server listening", zap.String("addr", s.Addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("routes: listen on %s: %w", s.Addr, err)
		}
		close(errCh)
	}()
	return errCh
}

// Stop 在timeout内优雅关闭服务器
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("routes: shutdown: %w", err)
	}
	return nil
}
