package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"matchchat/internal/adapter/api"
	"matchchat/internal/adapter/api/handler"
	apimiddleware "matchchat/internal/adapter/api/middleware"
	"matchchat/internal/adapter/api/router"
	"matchchat/internal/adapter/repository"
	domainrepo "matchchat/internal/domain/repository"
	"matchchat/internal/domain/service"
	"matchchat/internal/infrastructure/firebase"
	"matchchat/internal/infrastructure/ratelimit"
	"matchchat/internal/infrastructure/websocket"
	"matchchat/internal/usecase"
	"matchchat/pkg/config"
	"matchchat/pkg/logger"
)

type stores struct {
	chats    domainrepo.ChatRepository
	messages domainrepo.MessageRepository
	profiles domainrepo.ProfileRepository
	verifier usecase.TokenVerifier
	tokens   handler.TokenGenerator
	close    func()
}

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

// run owns every deferred cleanup, so main exits only after they ran.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.close()

	profiles := st.profiles
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable at %s, profile cache disabled: %v", cfg.RedisAddr, err)
		} else {
			profiles = repository.NewCachedProfileRepository(profiles, redisClient, cfg.ProfileCacheTTL)
			logger.Info("Profile cache enabled on %s", cfg.RedisAddr)
		}
	}

	identity := usecase.ContextIdentity{}
	accounts := usecase.TestChatAccounts{
		UserAID:   cfg.TestChat.UserAID,
		UserAName: cfg.TestChat.UserAName,
		UserBID:   cfg.TestChat.UserBID,
		UserBName: cfg.TestChat.UserBName,
	}

	sender := usecase.NewMessageSender(st.chats, st.messages, identity)
	receipts := usecase.NewReadReceiptTracker(st.chats, st.messages, identity)
	reactions := usecase.NewReactionManager(st.chats, st.messages)
	directory := usecase.NewChatDirectory(st.chats, identity)
	prefetcher := service.NewAvatarPrefetchService(cfg.AvatarPrefetchRPS, cfg.ProfileCacheTTL, cfg.AvatarHosts)
	aggregator := usecase.NewChatPreviewAggregator(st.chats, profiles, identity, prefetcher, cfg.AvatarPrefetchCount)
	lifecycle := usecase.NewTestChatLifecycle(st.chats, identity, accounts, cfg.IsProduction())

	limiter := ratelimit.NewRateLimiter(ratelimit.Policy{
		Limit: rate.Limit(cfg.RateLimitRPS),
		Burst: cfg.RateLimitBurst,
	})
	limiter.StartCleanupRoutine(ctx.Done())

	wsManager := websocket.NewManager(st.chats, st.messages, websocket.NewDispatcher(sender, receipts, reactions, limiter))
	wsManager.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Validator = api.NewValidator()

	var checkOrigin func(*http.Request) bool
	if !cfg.IsProduction() {
		checkOrigin = func(*http.Request) bool { return true }
	}

	router.Setup(e, router.Handlers{
		Chat:      handler.NewChatHandler(directory, sender, receipts, reactions, aggregator),
		Dev:       handler.NewDevHandler(lifecycle, accounts, st.tokens),
		WebSocket: handler.NewWebSocketHandler(wsManager, checkOrigin),
		Health:    handler.NewHealthHandler(cfg.StoreDriver),
	}, apimiddleware.NewAuthMiddleware(st.verifier), limiter, cfg.IsProduction())

	go func() {
		logger.Info("Starting server on port %s (%s store)...", cfg.ServerPort, cfg.StoreDriver)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		if cfg.IsProduction() {
			return nil, errors.New("memory store is not allowed in production")
		}
		logger.Warn("Using in-memory store; bearer tokens are taken as user ids")
		mem := repository.NewMemoryStore()
		return &stores{
			chats:    repository.NewMemoryChatRepository(mem),
			messages: repository.NewMemoryMessageRepository(mem),
			profiles: repository.NewMemoryProfileRepository(mem),
			verifier: apimiddleware.InsecureTokenVerifier{},
			close:    func() {},
		}, nil
	}

	opts := credentials()

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		return nil, err
	}
	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		return nil, err
	}

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)
	return &stores{
		chats:    repository.NewFirestoreChatRepository(firestoreClient),
		messages: repository.NewFirestoreMessageRepository(firestoreClient),
		profiles: repository.NewFirestoreProfileRepository(firestoreClient),
		verifier: firebaseAuthClient,
		tokens:   firebaseAuthClient,
		close:    func() { firestoreClient.Close() },
	}, nil
}

// credentials prefers inline service account JSON, then a key file, then
// application default credentials.
func credentials() []option.ClientOption {
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(serviceAccountJSON))}
	}
	if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		logger.Info("Using Firebase service account from file: %s", serviceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(serviceAccountPath)}
	}
	logger.Info("Using application default credentials")
	return nil
}
